// Package catalog loads and validates the shared presence data set: status
// weight tables, the game and editor catalogs, the track catalog, custom
// status phrases, and the identity token list.
//
// The Catalog is built once at startup, validated eagerly, and treated as
// read-only for the life of the process.
package catalog

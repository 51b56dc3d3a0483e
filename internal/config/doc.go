// Package config handles YAML runtime configuration loading with environment
// variable substitution.
//
// Configuration files support ${VAR} syntax for environment variable
// interpolation. The presence data catalogs themselves are loaded separately
// by the catalog package; this package only locates them.
package config

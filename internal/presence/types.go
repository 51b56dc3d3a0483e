package presence

// Activity type discriminators used by the gateway.
const (
	activityGame      = 0
	activityListening = 2
	activityCustom    = 4
)

// listeningFlags marks a listening activity as synced and playable.
const listeningFlags = 48

// UpdateFrame is the op-3 presence-update frame sent to the gateway.
type UpdateFrame struct {
	Op   int    `json:"op"`
	Data Update `json:"d"`
}

// Update is the presence-update body.
type Update struct {
	Since      int        `json:"since"`
	Activities []Activity `json:"activities"`
	Status     string     `json:"status"`
	AFK        bool       `json:"afk"`
}

// Activity is one entry in an update's activity list. Fields are a union
// across the game, listening and custom-status shapes; unused fields are
// omitted from the wire form.
type Activity struct {
	ID            string      `json:"id,omitempty"`
	Type          int         `json:"type"`
	Flags         int         `json:"flags,omitempty"`
	Name          string      `json:"name,omitempty"`
	State         string      `json:"state,omitempty"`
	Details       string      `json:"details,omitempty"`
	ApplicationID string      `json:"application_id,omitempty"`
	Timestamps    *Timestamps `json:"timestamps,omitempty"`
	Party         *Party      `json:"party,omitempty"`
	Assets        *Assets     `json:"assets,omitempty"`
	Emoji         *Emoji      `json:"emoji,omitempty"`
}

// Timestamps carries activity start/end in milliseconds since the Unix epoch.
type Timestamps struct {
	Start int64 `json:"start"`
	End   int64 `json:"end,omitempty"`
}

// Party identifies a listening party.
type Party struct {
	ID string `json:"id"`
}

// Assets holds activity image references.
type Assets struct {
	SmallText  string `json:"small_text,omitempty"`
	SmallImage string `json:"small_image,omitempty"`
	LargeImage string `json:"large_image,omitempty"`
}

// Emoji decorates a custom-status activity. ID is always null for unicode
// emoji, so it is kept as a pointer and never omitted.
type Emoji struct {
	ID       *string `json:"id"`
	Name     string  `json:"name"`
	Animated bool    `json:"animated"`
}

// Payload is a synthesized presence update plus the status kind that drove
// it, reported upward for observability.
type Payload struct {
	Kind  string
	Frame UpdateFrame
}

package clinical

// Patient carries the identity fields the UI layer hands to the core.
// The core never stores patients; this travels with each session.
type Patient struct {
	Name string `json:"name"`
	Age  string `json:"age"`
}

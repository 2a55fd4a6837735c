package domain

// Identity is the verified {id, name} pair handed to the signaling core
// by the auth layer. It never changes for the lifetime of a connection.
type Identity struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}

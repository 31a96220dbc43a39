package model

// RemoteAccount is an account definition served by the aggregator API via
// GET /accounts/. The client secret arrives encrypted and must be decrypted
// before constructing a provider client.
type RemoteAccount struct {
	ID           int     `json:"id"`
	Name         string  `json:"name"`
	Vendor       string  `json:"vendor"`
	ClientKey    string  `json:"client_key"`
	ClientSecret string  `json:"client_secret"`
	Created      string  `json:"created"`
	Updated      *string `json:"updated"`
}

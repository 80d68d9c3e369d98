package models

type SeedPair struct {
	ClientSeed     string `json:"client_seed" redis:"client_seed"`
	ServerSeed     string `json:"-" redis:"server_seed"`
	ServerSeedHash string `json:"server_seed_hash" redis:"server_seed_hash"`
	Nonce          uint64 `json:"nonce" redis:"nonce"`
}

// SeedRotation is returned when either seed is replaced. The previous server
// seed is revealed so that every round played under it can be verified.
type SeedRotation struct {
	RevealedServerSeed string   `json:"revealed_server_seed"`
	RevealedSeedHash   string   `json:"revealed_server_seed_hash"`
	PreviousClientSeed string   `json:"previous_client_seed"`
	RoundsPlayed       uint64   `json:"rounds_played"`
	Current            SeedPair `json:"current"`
}

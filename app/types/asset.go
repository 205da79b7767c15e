package types

// NetworkKindApoloPay marks the in-house settlement network. Deposits on it
// are paid through a hosted redirect URL instead of a raw wallet address.
const NetworkKindApoloPay = "apolopay"

type Network struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Image string `json:"image"`
	Kind  string `json:"kind"`
}

func (n Network) IsApoloPay() bool {
	return n.Kind == NetworkKindApoloPay || n.ID == NetworkKindApoloPay
}

type Asset struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Symbol   string    `json:"symbol"`
	Image    string    `json:"image"`
	Networks []Network `json:"networks"`
}

// FindNetwork returns the network with the given id, or false when the asset
// cannot settle on it.
func (a Asset) FindNetwork(networkID string) (Network, bool) {
	for _, network := range a.Networks {
		if network.ID == networkID {
			return network, true
		}
	}
	return Network{}, false
}

package network

// Network is a named group of gateways, identified by its code.
type Network struct {
	Code        string    `json:"code"`
	Name        string    `json:"name,omitempty"`
	Description string    `json:"description,omitempty"`
	Gateways    []Gateway `json:"gateways,omitempty"`
}

// Gateway connects a set of sensors to a network.
type Gateway struct {
	MACAddress  string   `json:"macAddress"`
	Name        string   `json:"name,omitempty"`
	Description string   `json:"description,omitempty"`
	Sensors     []Sensor `json:"sensors,omitempty"`
}

// Sensor measures one variable, in one unit, through its gateway.
type Sensor struct {
	MACAddress  string `json:"macAddress"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	Variable    string `json:"variable,omitempty"`
	Unit        string `json:"unit,omitempty"`
}

// NetworkUpdate is a partial update; nil fields are left unchanged.
type NetworkUpdate struct {
	Code        *string `json:"code"`
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

// GatewayUpdate is a partial update; nil fields are left unchanged.
type GatewayUpdate struct {
	MACAddress  *string `json:"macAddress"`
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

// SensorUpdate is a partial update; nil fields are left unchanged.
type SensorUpdate struct {
	MACAddress  *string `json:"macAddress"`
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Variable    *string `json:"variable"`
	Unit        *string `json:"unit"`
}

package telemetry

// SensorData is the payload published on the sensor topic. Humidity is
// omitted for parts that do not measure it.
type SensorData struct {
	Temperature float64  `json:"temperature"`
	Humidity    *float64 `json:"humidity,omitempty"`
	Pressure    float64  `json:"pressure"`
	Reading     uint64   `json:"reading"`
}

// Heartbeat is the payload published on the heartbeat topic.
type Heartbeat struct {
	Message  string `json:"message"`
	Sequence uint64 `json:"sequence"`
}

// DeviceStatus is the payload published on the status topic.
type DeviceStatus struct {
	Status   string `json:"status"`
	Uptime   int64  `json:"uptime"`
	FreeHeap uint64 `json:"free_heap"`
	WifiRSSI int    `json:"wifi_rssi"`
}

// Topics derives the publish topics from a configured prefix.
type Topics struct {
	Prefix string
}

func (t Topics) Sensor(variant string) string {
	return t.Prefix + "/sensor/" + variant
}

func (t Topics) Heartbeat() string {
	return t.Prefix + "/heartbeat"
}

func (t Topics) Status() string {
	return t.Prefix + "/status"
}

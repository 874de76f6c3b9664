package modem

import (
	"encoding/json"
	"fmt"
)

// Payload is the JSON document POSTed to the telemetry endpoint: the
// asset's identity and health plus one escaped string per captured scan
// line.
type Payload struct {
	AssetID         string   `json:"assetId"`
	LocationName    string   `json:"locationName"`
	ForestName      string   `json:"forestName"`
	Latitude        float64  `json:"latitude"`
	Longitude       float64  `json:"longitude"`
	BatteryCapacity int      `json:"batteryCapacity"`
	StateOfCharge   int      `json:"stateOfCharge"`
	RuntimeToEmpty  int      `json:"runtimeToEmpty"`
	BatteryVoltage  float64  `json:"batteryVoltage"`
	BatteryCurrent  float64  `json:"batteryCurrent"`
	CellTemperature float64  `json:"cellTemperature"`
	PCBTemperature  float64  `json:"pcbTemperature"`
	SDCardCapacity  int      `json:"sdCardCapacity"`
	Timestamp       string   `json:"timestamp"`
	ScanData        []string `json:"scanData"`
}

// Encode marshals the payload for transmission. ScanData is normalized
// to an empty array rather than null so the receiving API's schema
// validation passes on empty uploads.
func (p Payload) Encode() ([]byte, error) {
	if p.ScanData == nil {
		p.ScanData = []string{}
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	return data, nil
}

package testenv

import (
	"bytes"
	"encoding/json"
)

// FromJSON unmarshals a JSON document the way the farm decodes its
// configuration: unknown fields are rejected. Error causes panic.
func FromJSON(j string, ptr any) {
	decoder := json.NewDecoder(bytes.NewReader([]byte(j)))
	decoder.DisallowUnknownFields()
	if e := decoder.Decode(ptr); e != nil {
		panic(e)
	}
}

package transport

import (
	jsoniter "github.com/json-iterator/go"

	"DistWordFreq/internal/types"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// EncodePartial serializes a partial result; the counts travel as a JSON
// object mapping word to count.
func EncodePartial(res types.PartialResult) ([]byte, error) {
	return json.Marshal(res)
}

// DecodePartial is the inverse of EncodePartial.
func DecodePartial(data []byte) (types.PartialResult, error) {
	var res types.PartialResult
	if err := json.Unmarshal(data, &res); err != nil {
		return types.PartialResult{}, err
	}
	if res.Counts == nil {
		res.Counts = types.CountMap{}
	}
	return res, nil
}

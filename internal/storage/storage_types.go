package storage

import (
	"fmt"
	"strconv"
	"strings"
)

// Item is one entry of a directory listing.
type Item struct {
	Guid            string  `json:"Guid"`
	StorageZoneName string  `json:"StorageZoneName"`
	Path            string  `json:"Path"`
	ObjectName      string  `json:"ObjectName"`
	Length          int64   `json:"Length"`
	LastChanged     string  `json:"LastChanged"`
	ServerId        int64   `json:"ServerId"`
	ArrayNumber     int64   `json:"ArrayNumber"`
	IsDirectory     bool    `json:"IsDirectory"`
	UserId          string  `json:"UserId"`
	ContentType     string  `json:"ContentType"`
	DateCreated     string  `json:"DateCreated"`
	StorageZoneId   int64   `json:"StorageZoneId"`
	Checksum        *string `json:"Checksum"`
	ReplicatedZones *string `json:"ReplicatedZones"`
}

// StatusCode is an HTTP status that decodes from either a JSON number or a numeric string.
type StatusCode int

func (s *StatusCode) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if raw == "" || raw == "null" {
		*s = 0
		return nil
	}
	code, err := strconv.Atoi(raw)
	if err != nil || code < 0 || code > 999 {
		return fmt.Errorf("invalid http status code %s", data)
	}
	*s = StatusCode(code)
	return nil
}

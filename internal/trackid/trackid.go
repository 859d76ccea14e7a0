// Package trackid reads the Kakao Ad track ID from the files the app build writes it
// into: an Android string resource and an iOS Info.plist key.
package trackid

import (
	"encoding/xml"
	"errors"
	"fmt"
	"os"
	"strings"

	"howett.net/plist"
)

const (
	// ResourceName is the Android string resource holding the track ID.
	ResourceName = "kakao_ad_track_id"
	// InfoPlistKey is the Info.plist key holding the track ID.
	InfoPlistKey = "KAKAO_AD_TRACK_ID"
)

type stringResource struct {
	Name  string `xml:"name,attr"`
	Value string `xml:",chardata"`
}

type resources struct {
	XMLName xml.Name         `xml:"resources"`
	Strings []stringResource `xml:"string"`
}

// FromStringsXML returns the value of the named <string> resource. A missing file or
// resource yields "" and no error.
func FromStringsXML(path, name string) (string, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return ParseStringsXML(data, name)
}

func ParseStringsXML(data []byte, name string) (string, error) {
	var res resources
	if err := xml.Unmarshal(data, &res); err != nil {
		return "", fmt.Errorf("parse string resources: %w", err)
	}
	for _, s := range res.Strings {
		if s.Name == name {
			return strings.TrimSpace(s.Value), nil
		}
	}
	return "", nil
}

// FromInfoPlist returns the string stored under key in an XML or binary plist. A
// missing file or key yields "" and no error; a non-string value is ignored.
func FromInfoPlist(path, key string) (string, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return ParseInfoPlist(data, key)
}

func ParseInfoPlist(data []byte, key string) (string, error) {
	var dict map[string]any
	if _, err := plist.Unmarshal(data, &dict); err != nil {
		return "", fmt.Errorf("parse info plist: %w", err)
	}
	s, _ := dict[key].(string)
	return strings.TrimSpace(s), nil
}

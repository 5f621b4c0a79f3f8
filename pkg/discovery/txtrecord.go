package discovery

import (
	"fmt"
	"slices"
	"strings"
)

// TXT record keys.
const (
	TXTKeyAPI    = "api"
	TXTKeyScheme = "scheme"
	TXTKeyPath   = "path"
	TXTKeyName   = "name"
)

// TXTRecordMap holds TXT key/value pairs.
type TXTRecordMap map[string]string

// EncodeServerTXT builds the TXT records for info.
func EncodeServerTXT(info Info) TXTRecordMap {
	txt := TXTRecordMap{TXTKeyAPI: info.APIVersion}
	if info.Scheme != "" {
		txt[TXTKeyScheme] = info.Scheme
	}
	if info.Path != "" {
		txt[TXTKeyPath] = info.Path
	}
	if info.Name != "" {
		txt[TXTKeyName] = info.Name
	}
	return txt
}

// DecodeServerTXT parses TXT records. The api key is required.
func DecodeServerTXT(txt TXTRecordMap) (Info, error) {
	api, ok := txt[TXTKeyAPI]
	if !ok || api == "" {
		return Info{}, fmt.Errorf("%w: missing %s", ErrInvalidTXT, TXTKeyAPI)
	}
	info := Info{
		APIVersion: api,
		Scheme:     txt[TXTKeyScheme],
		Path:       txt[TXTKeyPath],
		Name:       txt[TXTKeyName],
	}
	switch info.Scheme {
	case "", "http", "https":
	default:
		return Info{}, fmt.Errorf("%w: scheme %q", ErrInvalidTXT, info.Scheme)
	}
	return info, nil
}

// TXTRecordsToStrings converts a TXTRecordMap to sorted "key=value" strings.
func TXTRecordsToStrings(txt TXTRecordMap) []string {
	result := make([]string, 0, len(txt))
	for k, v := range txt {
		result = append(result, k+"="+v)
	}
	slices.Sort(result)
	return result
}

// StringsToTXTRecords parses "key=value" strings into a TXTRecordMap.
func StringsToTXTRecords(strs []string) TXTRecordMap {
	txt := make(TXTRecordMap)
	for _, s := range strs {
		k, v, _ := strings.Cut(s, "=")
		if k != "" {
			txt[k] = v
		}
	}
	return txt
}

// ValidateInstanceName checks if an instance name is valid for mDNS.
func ValidateInstanceName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInstanceNameTooLong)
	}
	if len(name) > MaxInstanceNameLen {
		return ErrInstanceNameTooLong
	}
	return nil
}

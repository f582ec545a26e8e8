package gateway

import (
	"strconv"
	"strings"

	"github.com/twmb/flowgate/internal/logging"
	"github.com/twmb/flowgate/pkg/storage"
)

// AutoOffsetReset is the client's hint for where an unseen partition
// should start, translated onto the storage-subscribe call (spec §4.2.2).
type AutoOffsetReset uint8

const (
	AutoOffsetResetUnset AutoOffsetReset = iota
	AutoOffsetResetEarliest
	AutoOffsetResetLatest
)

// translate maps the enum to the string storage.Subscribe expects,
// with "" meaning absent.
func (a AutoOffsetReset) translate() string {
	switch a {
	case AutoOffsetResetEarliest:
		return "earliest"
	case AutoOffsetResetLatest:
		return "latest"
	default:
		return ""
	}
}

// resolveGroupID implements spec §4.2.1: an explicit non-zero
// groupVersion wins outright; otherwise group is parsed for a legacy
// "<name>-vN" suffix, logging a warning if one was found.
func resolveGroupID(log logging.Logger, group string, groupVersion uint32) storage.GroupID {
	if groupVersion != 0 {
		return storage.GroupID{Name: group, Version: groupVersion}
	}
	id, legacy := parseLegacyGroup(group)
	if legacy {
		log.Log(logging.LevelWarn, "parsed legacy group suffix",
			"group", group, "name", id.Name, "version", id.Version)
	}
	return id
}

// parseLegacyGroup implements spec §6 "Legacy group parsing": a group
// string of the form "<name>-v<digits>" with digits >= 1 parses as
// (name, digits); otherwise (group, 0). legacy reports whether a
// suffix was actually parsed out.
func parseLegacyGroup(group string) (storage.GroupID, bool) {
	idx := strings.LastIndex(group, "-v")
	if idx < 0 || idx+2 >= len(group) {
		return storage.GroupID{Name: group, Version: 0}, false
	}
	digits := group[idx+2:]
	for _, r := range digits {
		if r < '0' || r > '9' {
			return storage.GroupID{Name: group, Version: 0}, false
		}
	}
	version, err := strconv.ParseUint(digits, 10, 32)
	if err != nil || version == 0 {
		return storage.GroupID{Name: group, Version: 0}, false
	}
	return storage.GroupID{Name: group[:idx], Version: uint32(version)}, true
}

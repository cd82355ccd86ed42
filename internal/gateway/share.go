package gateway

import (
	"errors"
	"net/url"
	"strings"

	"github.com/livetemplate/tinkerpen"
	"github.com/livetemplate/tinkerpen/internal/security"
)

var errMissingParam = errors.New("link has no " + tinkerpen.ShareParam + " parameter")

// EncodeForShare serializes s and percent-encodes it for use as a query value.
// Spaces become %20, matching encodeURIComponent.
func EncodeForShare(s tinkerpen.Snapshot) string {
	// Marshalling a struct of strings cannot fail.
	data, _ := tinkerpen.MarshalSnapshot(s)
	return strings.ReplaceAll(url.QueryEscape(string(data)), "+", "%20")
}

// DecodeFromShare reverses EncodeForShare. The value is unescaped exactly once.
func DecodeFromShare(v string) (tinkerpen.Snapshot, error) {
	raw, err := url.QueryUnescape(v)
	if err != nil {
		return tinkerpen.Snapshot{}, &tinkerpen.DeserializeError{Source: "share", Err: err}
	}
	return decodeShared(raw)
}

// ShareURL returns base (stripped of query and fragment) with the encoded
// snapshot in the code parameter.
func ShareURL(base string, s tinkerpen.Snapshot) (string, error) {
	u, err := security.ValidateShareBase(base)
	if err != nil {
		return "", err
	}
	return u.String() + "?" + tinkerpen.ShareParam + "=" + EncodeForShare(s), nil
}

// FromQuery extracts a shared snapshot from parsed query values. URL parsing
// has already unescaped the parameter, so its value is decoded as JSON
// directly. The bool result reports whether the parameter was present.
func FromQuery(values url.Values) (tinkerpen.Snapshot, bool, error) {
	if !values.Has(tinkerpen.ShareParam) {
		return tinkerpen.Snapshot{}, false, nil
	}
	s, err := decodeShared(values.Get(tinkerpen.ShareParam))
	return s, true, err
}

// ParseShareLink accepts either a full share URL or a bare encoded value.
func ParseShareLink(link string) (tinkerpen.Snapshot, error) {
	link = strings.TrimSpace(link)
	if strings.Contains(link, "://") || strings.HasPrefix(link, "?") {
		u, err := url.Parse(link)
		if err != nil {
			return tinkerpen.Snapshot{}, &tinkerpen.DeserializeError{Source: "share", Err: err}
		}
		s, ok, err := FromQuery(u.Query())
		if err != nil {
			return tinkerpen.Snapshot{}, err
		}
		if !ok {
			return tinkerpen.Snapshot{}, &tinkerpen.DeserializeError{
				Source: "share",
				Err:    errMissingParam,
			}
		}
		return s, nil
	}
	return DecodeFromShare(link)
}

func decodeShared(raw string) (tinkerpen.Snapshot, error) {
	s, err := tinkerpen.UnmarshalSnapshot([]byte(raw))
	if err != nil {
		return tinkerpen.Snapshot{}, &tinkerpen.DeserializeError{Source: "share", Err: err}
	}
	return s, nil
}

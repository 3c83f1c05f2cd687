package browser

import (
	"encoding/json"
	"fmt"

	"github.com/aretw0/sticky/pkg/domain"
	"github.com/go-rod/rod/lib/proto"
	"github.com/mitchellh/mapstructure"
)

// Fingerprint is the part of a persisted fingerprint that can be replayed
// on a page through CDP. Unknown attributes are ignored.
type Fingerprint struct {
	UserAgent         string  `mapstructure:"userAgent"`
	Platform          string  `mapstructure:"platform"`
	AcceptLanguage    string  `mapstructure:"acceptLanguage"`
	ScreenWidth       int     `mapstructure:"screenWidth"`
	ScreenHeight      int     `mapstructure:"screenHeight"`
	DeviceScaleFactor float64 `mapstructure:"deviceScaleFactor"`
	Mobile            bool    `mapstructure:"mobile"`
}

// DecodeFingerprint reads the replayable attributes out of an opaque fingerprint map.
func DecodeFingerprint(raw map[string]any) (Fingerprint, error) {
	var fp Fingerprint
	if len(raw) == 0 {
		return fp, nil
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &fp,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return fp, err
	}
	if err := dec.Decode(raw); err != nil {
		return fp, fmt.Errorf("failed to decode fingerprint: %w", err)
	}
	return fp, nil
}

// CookiesFromProto converts CDP cookies to the persisted shape.
// Session cookies keep Expires at 0.
func CookiesFromProto(cookies []*proto.NetworkCookie) []domain.Cookie {
	out := make([]domain.Cookie, 0, len(cookies))
	for _, c := range cookies {
		if c == nil {
			continue
		}
		cookie := domain.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
			SameSite: string(c.SameSite),
		}
		if !c.Session && c.Expires > 0 {
			cookie.Expires = float64(c.Expires)
		}
		out = append(out, cookie)
	}
	return out
}

// CookieParams converts persisted cookies to CDP set-cookie parameters.
func CookieParams(cookies []domain.Cookie) []*proto.NetworkCookieParam {
	params := make([]*proto.NetworkCookieParam, 0, len(cookies))
	for _, c := range cookies {
		if c.Name == "" {
			continue
		}
		params = append(params, &proto.NetworkCookieParam{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  proto.TimeSinceEpoch(c.Expires),
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
			SameSite: proto.NetworkCookieSameSite(c.SameSite),
		})
	}
	return params
}

// storageSnapshot is what captureStorageJS returns.
type storageSnapshot struct {
	Origin  string            `json:"origin"`
	Local   map[string]string `json:"local"`
	Session map[string]string `json:"session"`
}

// merge records the snapshot's storage under its origin.
// Opaque origins ("null") cannot be restored and are dropped.
func (s storageSnapshot) merge(data *domain.SessionData) {
	if s.Origin == "" || s.Origin == "null" {
		return
	}
	if len(s.Local) > 0 {
		data.LocalStorage[s.Origin] = s.Local
	}
	if len(s.Session) > 0 {
		data.SessionStorage[s.Origin] = s.Session
	}
}

const captureStorageJS = `() => {
	const dump = (get) => {
		const out = {};
		try {
			const s = get();
			for (let i = 0; i < s.length; i++) {
				const k = s.key(i);
				out[k] = s.getItem(k);
			}
		} catch (e) {}
		return out;
	};
	return {
		origin: location.origin,
		local: dump(() => window.localStorage),
		session: dump(() => window.sessionStorage),
	};
}`

const seedStorageTemplate = `(() => {
	const local = %s;
	const session = %s;
	const origin = location.origin;
	const fill = (get, entries) => {
		if (!entries) return;
		try {
			const s = get();
			for (const [k, v] of Object.entries(entries)) {
				if (s.getItem(k) === null) s.setItem(k, v);
			}
		} catch (e) {}
	};
	fill(() => window.localStorage, local[origin]);
	fill(() => window.sessionStorage, session[origin]);
})();`

// SeedScript builds the on-new-document script that restores storage for
// whichever origin the document belongs to. Keys already set by the page win.
func SeedScript(data domain.SessionData) (string, error) {
	data = data.Normalize()

	local, err := json.Marshal(data.LocalStorage)
	if err != nil {
		return "", fmt.Errorf("failed to marshal local storage: %w", err)
	}
	session, err := json.Marshal(data.SessionStorage)
	if err != nil {
		return "", fmt.Errorf("failed to marshal session storage: %w", err)
	}
	return fmt.Sprintf(seedStorageTemplate, local, session), nil
}

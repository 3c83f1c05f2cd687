// Package browser moves sticky session state in and out of a live Chrome
// driven by go-rod.
package browser

import (
	"context"
	"fmt"

	"github.com/aretw0/sticky/pkg/domain"
	"github.com/aretw0/sticky/pkg/session"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// Capture snapshots cookies of the whole browser and storage of the page's
// current origin. page may be nil to capture cookies only.
func Capture(ctx context.Context, b *rod.Browser, page *rod.Page) (domain.SessionData, error) {
	data := domain.SessionData{}.Normalize()

	cookies, err := b.Context(ctx).GetCookies()
	if err != nil {
		return data, fmt.Errorf("failed to get cookies: %w", err)
	}
	data.Cookies = CookiesFromProto(cookies)

	if page == nil {
		return data, nil
	}

	res, err := page.Context(ctx).Eval(captureStorageJS)
	if err != nil {
		return data, fmt.Errorf("failed to read storage: %w", err)
	}
	var snap storageSnapshot
	if err := res.Value.Unmarshal(&snap); err != nil {
		return data, fmt.Errorf("failed to decode storage: %w", err)
	}
	snap.merge(&data)

	return data, nil
}

// CaptureInto refreshes live from the browser right before release.
func CaptureInto(ctx context.Context, b *rod.Browser, page *rod.Page, live *session.Live) error {
	data, err := Capture(ctx, b, page)
	if err != nil {
		return err
	}
	live.Data = data
	return nil
}

// Apply seeds a fresh browser with a live session's state: cookies,
// user agent, fingerprint viewport, and storage on every new document.
// Call it before the first navigation.
func Apply(ctx context.Context, b *rod.Browser, page *rod.Page, live *session.Live) error {
	if len(live.Data.Cookies) > 0 {
		if err := b.Context(ctx).SetCookies(CookieParams(live.Data.Cookies)); err != nil {
			return fmt.Errorf("failed to set cookies: %w", err)
		}
	}

	fp, err := DecodeFingerprint(live.Fingerprint)
	if err != nil {
		return err
	}

	page = page.Context(ctx)

	userAgent := live.UserAgent
	if userAgent == "" {
		userAgent = fp.UserAgent
	}
	if userAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
			UserAgent:      userAgent,
			AcceptLanguage: fp.AcceptLanguage,
			Platform:       fp.Platform,
		}); err != nil {
			return fmt.Errorf("failed to set user agent: %w", err)
		}
	}

	if fp.ScreenWidth > 0 && fp.ScreenHeight > 0 {
		if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
			Width:             fp.ScreenWidth,
			Height:            fp.ScreenHeight,
			DeviceScaleFactor: fp.DeviceScaleFactor,
			Mobile:            fp.Mobile,
		}); err != nil {
			return fmt.Errorf("failed to set viewport: %w", err)
		}
	}

	if len(live.Data.LocalStorage) == 0 && len(live.Data.SessionStorage) == 0 {
		return nil
	}
	script, err := SeedScript(live.Data)
	if err != nil {
		return err
	}
	if _, err := page.EvalOnNewDocument(script); err != nil {
		return fmt.Errorf("failed to install storage seed: %w", err)
	}
	return nil
}

package handlers

import "github.com/aizen-labs/premium-bot/internal/bot/keyboard"

// Service is a catalog entry shown in the services menu. The catalog is
// informational; redeem requests carry whatever service the user names in
// their details message.
type Service struct {
	Slug        string
	Title       string
	Description string
}

var serviceCatalog = []Service{
	{
		Slug:        "prime",
		Title:       "🎬 Prime Video",
		Description: "Amazon originals, movies, and series.",
	},
	{
		Slug:        "spotify",
		Title:       "🎵 Spotify",
		Description: "Ad-free music with offline downloads.",
	},
	{
		Slug:        "crunchyroll",
		Title:       "🍥 Crunchyroll",
		Description: "Anime simulcasts and a deep back catalog.",
	},
	{
		Slug:        "turbovpn",
		Title:       "🚀 Turbo VPN",
		Description: "Fast VPN with servers worldwide.",
	},
	{
		Slug:        "hotspot",
		Title:       "🛡 Hotspot Shield VPN",
		Description: "Secure browsing with military-grade encryption.",
	},
}

func findService(slug string) (Service, bool) {
	for _, svc := range serviceCatalog {
		if svc.Slug == slug {
			return svc, true
		}
	}

	return Service{}, false
}

func serviceMenuItems() []keyboard.ServiceItem {
	items := make([]keyboard.ServiceItem, 0, len(serviceCatalog))
	for _, svc := range serviceCatalog {
		items = append(items, keyboard.ServiceItem{Slug: svc.Slug, Title: svc.Title})
	}

	return items
}

// Copyright (c) 2026 John Earle
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package catalog

import "github.com/subtrack/scanner/internal/models"

var defaultBrands = []Brand{
	{Name: "PureGym", Aliases: []string{"puregym", "pure gym"}},
	{Name: "Namecheap", Aliases: []string{"namecheap", "cdn"}},
	{Name: "Anthropic", Aliases: []string{"anthropic", "claude"}},
	{Name: "Paddle", Aliases: []string{"paddle", "leonardo interactive"}},
	{Name: "Emirates NBD", Aliases: []string{"emirates nbd", "emiratesnbd"}},
	{Name: "Webflow", Aliases: []string{"webflow"}},
	{Name: "GitHub", Aliases: []string{"github"}},
	{Name: "Fal", Aliases: []string{"fal", "team fal", "fal.ai"}},
	{Name: "Leonardo AI", Aliases: []string{"leonardo interactive", "leonardo ai"}},
}

var defaultTrusted = []string{
	"netflix", "spotify", "apple", "google", "microsoft", "adobe", "amazon",
	"dropbox", "github", "slack", "zoom", "notion", "discord", "youtube",
	"hulu", "disney", "prime video", "office 365", "gmail", "icloud",
	"onedrive", "canva", "figma", "trello", "asana", "monday", "salesforce",
	"twitch", "patreon", "mailchimp", "stripe", "paypal", "namecheap",
	"paddle", "puregym", "leonardo", "fal", "webflow", "vercel", "netlify",
	"planetscale", "railway",
}

var defaultServiceCategories = []CategoryRule{
	{models.CategoryEntertainment, []string{
		"netflix", "disney", "hulu", "prime video", "amazon prime", "paramount",
		"peacock", "hbo", "showtime", "starz", "crunchyroll",
	}},
	{models.CategoryMusic, []string{
		"spotify", "apple music", "youtube music", "pandora", "tidal",
		"soundcloud", "audible", "podcast",
	}},
	{models.CategorySoftware, []string{
		"microsoft", "office 365", "adobe", "notion", "slack", "zoom", "teams",
		"asana", "trello", "monday", "clickup", "airtable", "zapier", "calendly",
		"anthropic", "openai", "github", "gitlab", "fal",
	}},
	{models.CategoryDesign, []string{
		"canva", "figma", "sketch", "invision", "framer", "creative cloud",
		"photoshop", "illustrator", "leonardo", "runway", "midjourney",
	}},
	{models.CategoryWebServices, []string{
		"namecheap", "godaddy", "bluehost", "hostgator", "cloudflare", "aws",
		"google cloud", "azure", "digitalocean", "linode", "heroku", "vercel",
		"netlify", "webflow", "squarespace", "wix", "wordpress", "cdn",
	}},
	{models.CategoryHealth, []string{
		"puregym", "peloton", "fitbit", "myfitnesspal", "strava", "headspace",
		"calm", "noom", "gym", "fitness",
	}},
	{models.CategoryGaming, []string{
		"steam", "xbox", "playstation", "nintendo", "epic games", "origin",
		"ubisoft", "blizzard", "twitch", "discord nitro",
	}},
	{models.CategoryEducation, []string{
		"coursera", "udemy", "skillshare", "masterclass", "linkedin learning",
		"pluralsight", "codecademy", "khan academy", "duolingo", "babbel",
		"rosetta stone",
	}},
	{models.CategoryStorage, []string{
		"dropbox", "google drive", "icloud", "onedrive", "box", "mega", "backblaze",
	}},
	{models.CategorySecurity, []string{
		"nordvpn", "expressvpn", "surfshark", "protonvpn", "lastpass",
		"1password", "bitwarden", "dashlane", "malwarebytes", "norton", "mcafee",
	}},
	{models.CategoryCommunication, []string{
		"whatsapp", "telegram", "signal", "discord", "skype",
	}},
	{models.CategoryFood, []string{
		"uber eats", "doordash", "grubhub", "postmates", "deliveroo", "zomato",
		"talabat", "careem", "hellofresh", "blue apron",
	}},
	{models.CategoryTransportation, []string{
		"uber", "lyft", "lime", "bird", "zipcar",
	}},
	{models.CategoryFinance, []string{
		"mint", "ynab", "quickbooks", "freshbooks", "wave", "stripe", "paypal", "square",
	}},
	{models.CategoryNews, []string{
		"new york times", "wall street journal", "washington post",
		"the guardian", "medium", "substack", "economist", "bloomberg",
	}},
	{models.CategoryBusiness, []string{
		"salesforce", "hubspot", "mailchimp", "constant contact", "surveymonkey",
		"typeform", "intercom", "zendesk", "freshdesk",
	}},
	{models.CategoryShopping, []string{
		"costco", "walmart", "target", "instacart", "shipt",
	}},
	{models.CategoryTravel, []string{
		"airbnb", "booking", "expedia", "hotels", "tripadvisor", "kayak",
	}},
}

var defaultKeywordCategories = []CategoryRule{
	{models.CategoryEntertainment, []string{"tv", "movie", "film", "entertainment", "media", "streaming", "video"}},
	{models.CategoryMusic, []string{"music", "audio", "sound", "radio", "podcast", "song"}},
	{models.CategorySoftware, []string{"software", "app", "tool", "productivity", "api", "ai", "analytics"}},
	{models.CategoryHealth, []string{"health", "fitness", "gym", "workout", "exercise", "medical", "wellness"}},
	{models.CategoryGaming, []string{"game", "gaming", "play", "esports"}},
	{models.CategoryEducation, []string{"education", "learning", "course", "training", "tutorial", "study"}},
	{models.CategoryFood, []string{"food", "delivery", "restaurant", "meal", "recipe", "cooking"}},
	{models.CategoryTransportation, []string{"transport", "ride", "taxi", "car", "bike", "scooter"}},
	{models.CategoryFinance, []string{"bank", "finance", "money", "payment", "accounting", "invoice"}},
	{models.CategorySecurity, []string{"security", "privacy", "vpn", "password", "antivirus", "protection"}},
	{models.CategoryNews, []string{"news", "magazine", "journal", "newspaper", "article", "publication"}},
	{models.CategoryWebServices, []string{"hosting", "domain", "web", "server", "cloud", "infrastructure", "cdn"}},
	{models.CategoryDesign, []string{"design", "creative", "art", "photo", "image", "graphics", "logo"}},
	{models.CategoryStorage, []string{"storage", "backup", "sync", "drive", "cloud"}},
	{models.CategoryCommunication, []string{"chat", "message", "call", "video", "communication", "meeting"}},
	{models.CategoryUtilities, []string{"utility", "utilities", "electric", "water", "internet", "broadband", "telecom"}},
	{models.CategorySports, []string{"sport", "football", "soccer", "league", "golf", "tennis"}},
}

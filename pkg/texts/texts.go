// Package texts holds the user facing strings in each supported language.
package texts

import "sort"

// Texts is one language table. Line lists are rendered one entry per row.
type Texts struct {
	ErrorMQTT    string
	ErrorModule  string
	ErrorTimeout string
	ErrorSensor  string
	ErrorWiFi    string
	ErrorFormat  string
	Wait         string
	Connecting   string
	Demo         string

	OTA       string
	OTADone   string
	OTAFailed string

	// PortalInstructions is indexed by portal phase. "{ssid}" is replaced
	// with the access point name.
	PortalInstructions [4][]string
	FirstRun           []string
	// Calibration ends with an empty line that holds the countdown.
	Calibration []string
	// Calibrating mentions "400", replaced with the sensor baseline.
	Calibrating []string
}

var languages = map[string]Texts{
	"en": english,
	"nl": dutch,
}

// Languages returns the supported language codes.
func Languages() []string {
	out := make([]string, 0, len(languages))
	for k := range languages {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Select returns the table for lang, falling back to English. The second
// value is the language actually selected.
func Select(lang string) (Texts, string) {
	if t, ok := languages[lang]; ok {
		return t, lang
	}
	return languages["en"], "en"
}

var english = Texts{
	ErrorMQTT:    "MQTT unreachable",
	ErrorModule:  "module turned around!",
	ErrorTimeout: "Time's up",
	ErrorSensor:  "sensor error",
	ErrorWiFi:    "WiFi failed!",
	ErrorFormat:  "Formatting failed",
	Wait:         "wait...",
	Connecting:   "Connecting to WiFi...",
	Demo:         "demo!",
	OTA:          "OTA",
	OTADone:      "OTA done",
	OTAFailed:    "OTA failed",
	PortalInstructions: [4][]string{
		{"For configuration,", "connect to WiFi", "\"{ssid}\"", "with a smartphone."},
		{"Follow instructions", "on your smartphone.", "(log in notification)"},
		{"Change settings", "and click \"Save\".", "(bottom right)"},
		{"Change settings", "and click \"Save\".", "Or \"Restart device\"", "when you're done."},
	},
	FirstRun:    []string{"DO NOT TURN OFF", "Initializing", "flash memory."},
	Calibration: []string{"Manual calibration!", "Press button", "to cancel.", ""},
	Calibrating: []string{"Assuming current", "CO2 level to be", "400 PPM."},
}

var dutch = Texts{
	ErrorMQTT:    "MQTT onbereikbaar",
	ErrorModule:  "module verkeerd om!",
	ErrorTimeout: "Tijd verstreken",
	ErrorSensor:  "sensorfout",
	ErrorWiFi:    "WiFi mislukt!",
	ErrorFormat:  "Formatteren mislukt",
	Wait:         "wacht...",
	Connecting:   "Verbinden met WiFi...",
	Demo:         "demo!",
	OTA:          "OTA",
	OTADone:      "OTA klaar",
	OTAFailed:    "OTA mislukt",
	PortalInstructions: [4][]string{
		{"Voor configuratie,", "verbind met WiFi", "\"{ssid}\"", "met een smartphone."},
		{"Volg instructies op", "uw smartphone.", "(inlog-notificatie)"},
		{"Wijzig instellingen", "en klik op \"Opslaan\".", "(rechtsonder)"},
		{"Wijzig instellingen", "en klik op \"Opslaan\".", "Of \"Herstarten\"", "als u klaar bent."},
	},
	FirstRun:    []string{"NIET", "UITSCHAKELEN", "Flashgeheugen", "wordt voorbereid."},
	Calibration: []string{"Handmatige", "calibratie!", "knop = stop", ""},
	Calibrating: []string{"Het huidige CO2-", "niveau wordt", "aangenomen", "400 PPM te zijn."},
}

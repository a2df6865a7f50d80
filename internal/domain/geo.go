package domain

// City anchors a timezone to approximate coordinates for location-based zone
// detection.
type City struct {
	Name     string
	Lat, Lon float64
	TZ       string
}

// Cities is the lookup table for NearestZone. Coarse by design: the goal is a
// plausible zone suggestion, not geodesy.
var Cities = []City{
	{"Kaliningrad", 54.7109, 20.4510, "Europe/Kaliningrad"},
	{"Moscow", 55.7558, 37.6176, "Europe/Moscow"},
	{"Saint Petersburg", 59.9343, 30.3351, "Europe/Moscow"},
	{"Samara", 53.1959, 50.1002, "Europe/Samara"},
	{"Yekaterinburg", 56.8389, 60.6057, "Asia/Yekaterinburg"},
	{"Omsk", 54.9885, 73.3242, "Asia/Omsk"},
	{"Novosibirsk", 55.0084, 82.9357, "Asia/Novosibirsk"},
	{"Krasnoyarsk", 56.0153, 92.8932, "Asia/Krasnoyarsk"},
	{"Irkutsk", 52.2870, 104.3050, "Asia/Irkutsk"},
	{"Yakutsk", 62.0355, 129.6755, "Asia/Yakutsk"},
	{"Vladivostok", 43.1155, 131.8855, "Asia/Vladivostok"},
	{"Magadan", 59.5612, 150.8301, "Asia/Magadan"},
	{"Petropavlovsk-Kamchatsky", 53.0167, 158.6500, "Asia/Kamchatka"},
}

// NearestZone returns the timezone of the closest known city by squared
// coordinate distance.
func NearestZone(lat, lon float64) (tz, city string) {
	best := -1.0
	for _, c := range Cities {
		dLat, dLon := lat-c.Lat, lon-c.Lon
		d := dLat*dLat + dLon*dLon
		if best < 0 || d < best {
			best = d
			tz, city = c.TZ, c.Name
		}
	}
	return tz, city
}

// ZonePresets is the manual timezone picker, ordered west to east.
var ZonePresets = []struct {
	TZ    string
	Label string
}{
	{"Europe/Kaliningrad", "UTC+2 — Kaliningrad"},
	{"Europe/Moscow", "UTC+3 — Moscow"},
	{"Europe/Samara", "UTC+4 — Samara"},
	{"Asia/Yekaterinburg", "UTC+5 — Yekaterinburg"},
	{"Asia/Omsk", "UTC+6 — Omsk"},
	{"Asia/Novosibirsk", "UTC+7 — Novosibirsk"},
	{"Asia/Krasnoyarsk", "UTC+8 — Krasnoyarsk"},
	{"Asia/Irkutsk", "UTC+9 — Irkutsk"},
	{"Asia/Yakutsk", "UTC+10 — Yakutsk"},
	{"Asia/Vladivostok", "UTC+11 — Vladivostok"},
	{"Asia/Magadan", "UTC+12 — Magadan"},
	{"Asia/Kamchatka", "UTC+13 — Petropavlovsk-Kamchatsky"},
}

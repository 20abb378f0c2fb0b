package types

import "fmt"

// Season names used in the tariff document. The whole year lives in Summer
// since spot-price retailers have no seasonal tariffs; Winter exists only
// because the battery controller requires it.
const (
	SeasonAll    = "ALL"
	SeasonSummer = "Summer"
	SeasonWinter = "Winter"
)

// TariffDocument is the time-of-use tariff accepted by the battery
// controller. Map keys are serialized sorted by encoding/json so the same
// document always encodes to the same bytes.
type TariffDocument struct {
	Version       int                     `json:"version"`
	Code          string                  `json:"code"`
	Name          string                  `json:"name"`
	Utility       string                  `json:"utility"`
	Currency      string                  `json:"currency"`
	DailyCharges  []TariffCharge          `json:"daily_charges"`
	DemandCharges map[string]TariffRates  `json:"demand_charges"`
	EnergyCharges map[string]TariffRates  `json:"energy_charges"`
	Seasons       map[string]TariffSeason `json:"seasons"`
	SellTariff    *SellTariff             `json:"sell_tariff,omitempty"`
}

// SellTariff mirrors the buy side of a TariffDocument with export prices.
type SellTariff struct {
	Name          string                  `json:"name"`
	Utility       string                  `json:"utility"`
	DailyCharges  []TariffCharge          `json:"daily_charges"`
	DemandCharges map[string]TariffRates  `json:"demand_charges"`
	EnergyCharges map[string]TariffRates  `json:"energy_charges"`
	Seasons       map[string]TariffSeason `json:"seasons"`
}

// TariffCharge is a fixed daily charge.
type TariffCharge struct {
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
}

// TariffRates maps a period key to a price in currency units per kWh. An
// empty TariffRates serializes as {}.
type TariffRates struct {
	Rates map[string]float64 `json:"rates,omitempty"`
}

// TariffSeason is the date range and the time-of-use periods of a season.
type TariffSeason struct {
	FromMonth  int                        `json:"fromMonth"`
	ToMonth    int                        `json:"toMonth"`
	FromDay    int                        `json:"fromDay"`
	ToDay      int                        `json:"toDay"`
	TOUPeriods map[string]TOUPeriodGroup `json:"tou_periods"`
}

// TOUPeriodGroup holds the time windows belonging to one period key.
type TOUPeriodGroup struct {
	Periods []TOUPeriod `json:"periods"`
}

// TOUPeriod is a [from,to) window. Zero fields are omitted which is how the
// controller expects midnight, Sunday and on-the-hour values to be sent.
type TOUPeriod struct {
	FromDayOfWeek int `json:"fromDayOfWeek,omitempty"`
	ToDayOfWeek   int `json:"toDayOfWeek,omitempty"`
	FromHour      int `json:"fromHour,omitempty"`
	FromMinute    int `json:"fromMinute,omitempty"`
	ToHour        int `json:"toHour,omitempty"`
	ToMinute      int `json:"toMinute,omitempty"`
}

// PeriodKey returns the key naming the half-hour slot starting at hour:minute.
func PeriodKey(hour, minute int) string {
	return fmt.Sprintf("PERIOD_%02d_%02d", hour, minute)
}

// TariffEnvelope is the body the controller's time_of_use_settings endpoint
// accepts.
type TariffEnvelope struct {
	TOUSettings TOUSettings `json:"tou_settings"`
}

// TOUSettings wraps the tariff document.
type TOUSettings struct {
	TariffContentV2 TariffDocument `json:"tariff_content_v2"`
}

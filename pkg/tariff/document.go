package tariff

import (
	"fmt"

	"github.com/tousync/tousync/pkg/types"
)

const (
	documentVersion = 1
	codePrefix      = "TESLA_SYNC"
	manualUtility   = "Tesla Sync - Manual Control"

	// saturday, with the omitted fromDayOfWeek of 0 this covers every day
	allWeekToDayOfWeek = 6
)

// DocumentOptions describes the tariff metadata.
type DocumentOptions struct {
	Currency string
	Utility  string
	Override types.Override
}

func (o DocumentOptions) withDefaults() DocumentOptions {
	if o.Currency == "" {
		o.Currency = "AUD"
	}
	if o.Utility == "" {
		o.Utility = "Amber Electric"
	}
	return o
}

// identity returns the code, name and utility for the document. The code
// changes with the override so the controller notices the switch.
func (o DocumentOptions) identity() (string, string, string) {
	switch o.Override {
	case types.OverrideCharge:
		return codePrefix + ":MANUAL:CHARGE", "MANUAL CHARGE MODE (Tesla Sync)", manualUtility
	case types.OverrideDischarge:
		return codePrefix + ":MANUAL:DISCHARGE", "MANUAL DISCHARGE MODE (Tesla Sync)", manualUtility
	}
	return codePrefix + ":AMBER:AMBER", o.Utility + " (Tesla Sync)", o.Utility
}

// Document serializes the schedule into the controller's tariff format. A
// single Summer season covers the whole year, every slot gets its own
// time-of-use period and demand charges are always zero.
func (s Schedule) Document(opts DocumentOptions) types.TariffDocument {
	opts = opts.withDefaults()
	code, name, utility := opts.identity()

	buy := make(map[string]float64, SlotsPerDay)
	sell := make(map[string]float64, SlotsPerDay)
	periods := make(map[string]types.TOUPeriodGroup, SlotsPerDay)
	for _, slot := range s {
		key := slot.Key()
		buy[key] = slot.Buy.InexactFloat64()
		sell[key] = slot.Sell.InexactFloat64()
		periods[key] = types.TOUPeriodGroup{
			Periods: []types.TOUPeriod{touPeriod(slot.Hour, slot.Minute)},
		}
	}

	return types.TariffDocument{
		Version:       documentVersion,
		Code:          code,
		Name:          name,
		Utility:       utility,
		Currency:      opts.Currency,
		DailyCharges:  dailyCharges(),
		DemandCharges: zeroCharges(),
		EnergyCharges: energyCharges(buy),
		Seasons:       seasons(periods),
		// the sell tariff keeps the retailer identity even under an override
		SellTariff: &types.SellTariff{
			Name:          fmt.Sprintf("%s (managed by Tesla Sync, do not edit)", opts.Utility),
			Utility:       opts.Utility,
			DailyCharges:  dailyCharges(),
			DemandCharges: zeroCharges(),
			EnergyCharges: energyCharges(sell),
			Seasons:       seasons(periods),
		},
	}
}

// touPeriod returns the [start, start+30m) window for a slot. The end wraps
// to 00:00 after the last slot of the day.
func touPeriod(hour, minute int) types.TOUPeriod {
	toHour, toMinute := hour, minute+30
	if toMinute >= 60 {
		toMinute -= 60
		toHour = (toHour + 1) % 24
	}
	return types.TOUPeriod{
		ToDayOfWeek: allWeekToDayOfWeek,
		FromHour:    hour,
		FromMinute:  minute,
		ToHour:      toHour,
		ToMinute:    toMinute,
	}
}

func dailyCharges() []types.TariffCharge {
	return []types.TariffCharge{{Name: "Charge", Amount: 0}}
}

func zeroCharges() map[string]types.TariffRates {
	return map[string]types.TariffRates{
		types.SeasonAll:    {Rates: map[string]float64{types.SeasonAll: 0}},
		types.SeasonSummer: {},
		types.SeasonWinter: {},
	}
}

func energyCharges(rates map[string]float64) map[string]types.TariffRates {
	charges := zeroCharges()
	charges[types.SeasonSummer] = types.TariffRates{Rates: rates}
	return charges
}

func seasons(periods map[string]types.TOUPeriodGroup) map[string]types.TariffSeason {
	return map[string]types.TariffSeason{
		types.SeasonSummer: {
			FromMonth:  1,
			ToMonth:    12,
			FromDay:    1,
			ToDay:      31,
			TOUPeriods: periods,
		},
		types.SeasonWinter: {
			TOUPeriods: map[string]types.TOUPeriodGroup{},
		},
	}
}

package tariff

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/tousync/tousync/pkg/types"
)

// Slot is one half-hour of the controller's fixed daily cycle.
type Slot struct {
	Hour   int
	Minute int

	// Date is the calendar date whose prices were selected for the slot.
	Date Date

	Buy  decimal.Decimal
	Sell decimal.Decimal

	BuySamples  int
	SellSamples int

	// BuyFallback and SellFallback are set when the selected date had no data
	// and today's bucket for the same clock time was used instead.
	BuyFallback  bool
	SellFallback bool

	// BuyMissing and SellMissing are set when no data existed at all and the
	// price was emitted as zero.
	BuyMissing  bool
	SellMissing bool
}

// Key returns the period key of the slot, e.g. PERIOD_17_30.
func (s Slot) Key() string {
	return types.PeriodKey(s.Hour, s.Minute)
}

// Degraded returns true if either price had no data.
func (s Slot) Degraded() bool {
	return s.BuyMissing || s.SellMissing
}

// Schedule is the full day of slots starting at 00:00.
type Schedule [SlotsPerDay]Slot

// Degraded returns how many slots had missing data.
func (s Schedule) Degraded() int {
	var n int
	for _, slot := range s {
		if slot.Degraded() {
			n++
		}
	}
	return n
}

// MissingBuy returns how many slots have no buy price at all.
func (s Schedule) MissingBuy() int {
	var n int
	for _, slot := range s {
		if slot.BuyMissing {
			n++
		}
	}
	return n
}

// BuildSchedule assigns a buy and sell price to each of the 48 daily slots
// using a rolling 24 hour window.
//
// Slots earlier than now's half hour have already elapsed today so they carry
// tomorrow's price for the same clock time, the rest carry today's. The slot
// containing now counts as upcoming. The controller only understands a fixed
// daily cycle so this always gives it the next 24 hours of prices.
//
// now must already be in the site's location.
func BuildSchedule(l Lookup, now time.Time) Schedule {
	today := DateOf(now)
	tomorrow := today.AddDays(1)
	nowHour, nowMinute := now.Hour(), halfHour(now.Minute())

	var s Schedule
	for i := range s {
		hour, minute := slotTime(i)
		date := today
		if hour < nowHour || (hour == nowHour && minute < nowMinute) {
			date = tomorrow
		}

		slot := Slot{Hour: hour, Minute: minute, Date: date}
		key := SlotKey{Date: date, Hour: hour, Minute: minute}
		fallback := SlotKey{Date: today, Hour: hour, Minute: minute}

		slot.Buy, slot.BuySamples, slot.BuyFallback, slot.BuyMissing = average(l, types.ChannelBuy, key, fallback)
		slot.Sell, slot.SellSamples, slot.SellFallback, slot.SellMissing = average(l, types.ChannelSell, key, fallback)

		// the controller rejects negative prices
		slot.Buy = decimal.Max(slot.Buy, decimal.Zero)
		slot.Sell = decimal.Max(slot.Sell, decimal.Zero)
		// and any slot selling above buying, this must be the last correction
		slot.Sell = decimal.Min(slot.Sell, slot.Buy)

		s[i] = slot
	}
	return s
}

// average returns the mean of the bucket at key, or at fallback if key has
// no data.
func average(l Lookup, ch types.Channel, key, fallback SlotKey) (decimal.Decimal, int, bool, bool) {
	prices := l.bucket(ch, key)
	var usedFallback bool
	if len(prices) == 0 && key != fallback {
		prices = l.bucket(ch, fallback)
		usedFallback = len(prices) > 0
	}
	if len(prices) == 0 {
		return decimal.Zero, 0, false, true
	}
	return decimal.Avg(prices[0], prices[1:]...).Round(pricePlaces), len(prices), usedFallback, false
}

var (
	overrideDefaultMinBuy  = decimal.RequireFromString("0.05")
	overrideDefaultMaxBuy  = decimal.RequireFromString("0.30")
	overrideDefaultMinSell = decimal.RequireFromString("0.02")
	overrideDefaultMaxSell = decimal.RequireFromString("0.20")
)

// ApplyOverride flattens the schedule to push the battery into charging or
// discharging. Charge makes every slot as cheap as the cheapest positive buy
// price, discharge makes every slot as expensive as the most expensive one.
// Sell is set to the highest positive sell price in both cases and then
// capped at buy so the result is still accepted by the controller.
func ApplyOverride(s Schedule, o types.Override) Schedule {
	if o == types.OverrideNone {
		return s
	}

	minBuy, maxBuy := positiveRange(s, func(slot Slot) decimal.Decimal { return slot.Buy }, overrideDefaultMinBuy, overrideDefaultMaxBuy)
	_, maxSell := positiveRange(s, func(slot Slot) decimal.Decimal { return slot.Sell }, overrideDefaultMinSell, overrideDefaultMaxSell)

	buy := maxBuy
	if o == types.OverrideCharge {
		buy = minBuy
	}
	for i := range s {
		s[i].Buy = buy
		s[i].Sell = decimal.Min(maxSell, buy)
	}
	return s
}

func positiveRange(s Schedule, get func(Slot) decimal.Decimal, defMin, defMax decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	var lo, hi decimal.Decimal
	var found bool
	for _, slot := range s {
		v := get(slot)
		if !v.IsPositive() {
			continue
		}
		if !found {
			lo, hi, found = v, v, true
			continue
		}
		lo = decimal.Min(lo, v)
		hi = decimal.Max(hi, v)
	}
	if !found {
		return defMin, defMax
	}
	return lo, hi
}

package reminders

// Frequency define las frecuencias de toma soportadas.
type Frequency string

const (
	FreqOnceDaily    Frequency = "once_daily"
	FreqTwiceDaily   Frequency = "twice_daily"
	FreqThriceDaily  Frequency = "thrice_daily"
	FreqEvery6Hours  Frequency = "every_6_hours"
	FreqEvery8Hours  Frequency = "every_8_hours"
	FreqEvery12Hours Frequency = "every_12_hours"
	FreqAsNeeded     Frequency = "as_needed"
	FreqCustom       Frequency = "custom"
)

// Timing indica la relación de la toma con las comidas.
type Timing string

const (
	TimingBeforeMeal Timing = "before_meal"
	TimingAfterMeal  Timing = "after_meal"
	TimingAnytime    Timing = "anytime"
)

func ValidTiming(t Timing) bool {
	switch t {
	case TimingBeforeMeal, TimingAfterMeal, TimingAnytime:
		return true
	}
	return false
}

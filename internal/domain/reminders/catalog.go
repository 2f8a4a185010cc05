package reminders

import "errors"

var ErrUnknownFrequency = errors.New("unknown frequency")

// Catalog mapea frecuencia -> ventanas por defecto. Es configuración inmutable
// e inyectable (los tests pueden sustituir un catálogo propio).
type Catalog map[Frequency][]TimeWindow

func hm(h, m int) TimeOfDay {
	return TimeOfDay(h*60 + m)
}

// DefaultCatalog devuelve la tabla estándar de ventanas.
// Nota: la ventana Night de every_8_hours se guarda literalmente como
// 23:00–01:00; el wrap a día siguiente lo resuelve TimeWindow.EndAt.
func DefaultCatalog() Catalog {
	return Catalog{
		FreqOnceDaily: {
			{Label: "Morning", Start: hm(7, 0), End: hm(10, 0)},
		},
		FreqTwiceDaily: {
			{Label: "Morning", Start: hm(7, 0), End: hm(9, 0)},
			{Label: "Night", Start: hm(20, 0), End: hm(22, 0)},
		},
		FreqThriceDaily: {
			{Label: "Morning", Start: hm(7, 0), End: hm(9, 0)},
			{Label: "Afternoon", Start: hm(13, 0), End: hm(15, 0)},
			{Label: "Night", Start: hm(20, 0), End: hm(22, 0)},
		},
		FreqEvery6Hours: {
			{Label: "Morning", Start: hm(6, 0), End: hm(8, 0)},
			{Label: "Noon", Start: hm(12, 0), End: hm(14, 0)},
			{Label: "Evening", Start: hm(18, 0), End: hm(20, 0)},
			{Label: "Night", Start: hm(0, 0), End: hm(2, 0)},
		},
		FreqEvery8Hours: {
			{Label: "Morning", Start: hm(7, 0), End: hm(9, 0)},
			{Label: "Afternoon", Start: hm(15, 0), End: hm(17, 0)},
			{Label: "Night", Start: hm(23, 0), End: hm(1, 0)},
		},
		FreqEvery12Hours: {
			{Label: "Morning", Start: hm(7, 0), End: hm(9, 0)},
			{Label: "Night", Start: hm(19, 0), End: hm(21, 0)},
		},
	}
}

// Windows devuelve las ventanas por defecto de una frecuencia.
// as_needed y custom no tienen defaults (el caller las provee u omite).
func (c Catalog) Windows(f Frequency) ([]TimeWindow, error) {
	switch f {
	case FreqAsNeeded, FreqCustom:
		return nil, nil
	}
	ws, ok := c[f]
	if !ok {
		return nil, ErrUnknownFrequency
	}
	// copia para no exponer el slice interno
	out := make([]TimeWindow, len(ws))
	copy(out, ws)
	return out, nil
}

// Known indica si la frecuencia es reconocida por el catálogo.
func (c Catalog) Known(f Frequency) bool {
	switch f {
	case FreqAsNeeded, FreqCustom:
		return true
	}
	_, ok := c[f]
	return ok
}

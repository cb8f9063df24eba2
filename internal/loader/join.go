package loader

import (
	"sort"

	"wavecli/pkg/contracts/domain"
)

type dayKey struct {
	subject domain.SubjectID
	wave    domain.Wave
	date    string
}

// JoinDays outer-joins a wave's usage and location rows on
// (subject, wave, date) into raw day observations for the feature
// deriver. A day present in only one table keeps the other table's
// fields null. Output order is deterministic: wave, subject, date.
func JoinDays(usage []UsageRow, location []LocationRow) []domain.DayObservation {
	byKey := make(map[dayKey]domain.DayObservation, len(usage)+len(location))

	for _, u := range usage {
		k := dayKey{u.Subject, u.Wave, u.Date.Format("2006-01-02")}
		obs := byKey[k]
		obs.Subject, obs.Wave, obs.Date = u.Subject, u.Wave, u.Date
		total := u.TotalUnlock
		obs.TotalUnlock = &total
		obs.HomeUnlock = u.HomeUnlock
		byKey[k] = obs
	}

	for _, l := range location {
		k := dayKey{l.Subject, l.Wave, l.Date.Format("2006-01-02")}
		obs, ok := byKey[k]
		if !ok {
			obs = domain.DayObservation{Subject: l.Subject, Wave: l.Wave, Date: l.Date}
		}
		obs.TimeAtHome = l.TimeAtHome
		byKey[k] = obs
	}

	out := make([]domain.DayObservation, 0, len(byKey))
	for _, obs := range byKey {
		out = append(out, obs)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Wave != b.Wave {
			return a.Wave < b.Wave
		}
		if a.Subject != b.Subject {
			return a.Subject < b.Subject
		}
		return a.Date.Before(b.Date)
	})

	return out
}

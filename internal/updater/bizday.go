package updater

import "time"

// SubtractBusinessDays steps back n weekdays (Mon-Fri) from t, keeping the
// time of day. Exchange holidays are not modeled.
func SubtractBusinessDays(t time.Time, n int) time.Time {
	for n > 0 {
		t = t.AddDate(0, 0, -1)
		if wd := t.Weekday(); wd != time.Saturday && wd != time.Sunday {
			n--
		}
	}
	return t
}

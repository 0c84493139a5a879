package contracts

// Indicator is the key of a statistic produced by the test harness. The key is
// embedded in statistic file names, so it never contains '_'.
type Indicator string

const (
	// IndicatorIC Pearson correlation of factor(t-lag) and return(t)
	IndicatorIC Indicator = "IC"

	// IndicatorRankIC Spearman correlation of factor(t-lag) and return(t)
	IndicatorRankIC Indicator = "rankIC"

	// IndicatorBeta cross-sectional regression slope of return on factor
	IndicatorBeta Indicator = "beta"

	// IndicatorGroupIC correlation of group number and group mean return
	IndicatorGroupIC Indicator = "gpIC"

	// IndicatorTopBottom top group minus bottom group return
	IndicatorTopBottom Indicator = "tbdf"

	// IndicatorTurnover share of the top group replaced since the previous bar
	IndicatorTurnover Indicator = "turn"

	// IndicatorCost turnover times fee
	IndicatorCost Indicator = "cost"

	// IndicatorGroupReturn mean return of every factor group (one column per group)
	IndicatorGroupReturn Indicator = "groupRet"
)

// AllIndicators returns every indicator in report order
func AllIndicators() []Indicator {
	return []Indicator{
		IndicatorIC,
		IndicatorRankIC,
		IndicatorBeta,
		IndicatorGroupIC,
		IndicatorTopBottom,
		IndicatorTurnover,
		IndicatorCost,
		IndicatorGroupReturn,
	}
}

// IsValidIndicator checks if an indicator key is known
func IsValidIndicator(s string) bool {
	for _, ind := range AllIndicators() {
		if string(ind) == s {
			return true
		}
	}
	return false
}

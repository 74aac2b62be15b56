// Package domain models US state-level COVID-19 time series and the transforms
// that turn them into dashboard views.
//
// # Data Sources
//
// Three public CSV feeds are consumed, all read-only:
//
//	Cases:        https://raw.githubusercontent.com/nytimes/covid-19-data/master/us-states.csv
//	              date,state,fips,cases,deaths
//	Vaccinations: https://raw.githubusercontent.com/owid/covid-19-data/master/public/data/vaccinations/us_state_vaccinations.csv
//	              date,location,total_vaccinations,...
//	Lookup:       https://raw.githubusercontent.com/jasonong/List-of-US-States/master/states.csv
//	              State,Abbreviation
//
// The adapter layer maps these to [CaseRecord], [VaccinationRecord] and
// [RegionLookup]. Nothing in this package performs I/O or reads the wall clock.
//
// # Conventions
//
// Dates are calendar days represented as [time.Time] at UTC midnight.
//
// Case and death counts are cumulative as of the reported date. Publishers revise
// history, so a cumulative series may go down from one day to the next; derived
// day-over-day values keep the negative delta rather than clamping it.
//
// New cases:
//
//	new_cases[0] = 0
//	new_cases[i] = cases[i] - cases[i-1]   (within one region, ascending date)
//
// The diff never crosses a region boundary.
//
// Rolling columns use a 7-point trailing window and are nil until a region has
// seven observations:
//
//	rolling_week_cases[i]     = sum(cases[i-6..i])
//	rolling_week_new_cases[i] = sum(new_cases[i-6..i])
//
// # Vaccination Totals
//
// The choropleth collapses each region's vaccination series to a single value
// before joining with the lookup. [AggregateSum] reproduces the historical
// dashboard (sum over every reported date); [AggregateLatest] takes the most
// recent cumulative value, which is the figure most readers expect.
package domain

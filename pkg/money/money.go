// Package money holds helpers for dollar-denominated float amounts.
//
// Commission amounts arrive from the billing provider as decimal dollars.
// Sums of many float shares accumulate sub-cent noise, so comparisons across
// members always go through Round2 and a one-cent tolerance.
package money

import "math"

// Epsilon is the tolerance used when asserting split invariants.
const Epsilon = 1e-6

// Cent is the minimum meaningful difference between two amounts.
const Cent = 0.01

// Round2 rounds an amount to whole cents.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Equal reports whether two amounts agree within Epsilon.
func Equal(a, b float64) bool {
	return math.Abs(a-b) < Epsilon
}

// GreaterByCent reports whether a exceeds b by at least one cent after
// rounding both sides.
func GreaterByCent(a, b float64) bool {
	return Round2(a) >= Round2(b)+Cent
}

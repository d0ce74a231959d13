// Package charging decides, per parking event, whether a charging session
// opens and schedules its power over the parking window under one of four
// control policies: uncontrolled, night charge, RES integration and perfect
// foresight.
package charging

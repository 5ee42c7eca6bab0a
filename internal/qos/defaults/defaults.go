// Package defaults holds the factory QoS tables of the switch: the CoS and
// DSCP classification maps and the default queue scheduling and queue
// mapping layouts.
//
// The tables are fixed. Every accessor returns a fresh copy, so callers may
// modify what they get without affecting later calls.
package defaults

import (
	"strconv"

	"evalgo.org/qosd/models"
)

// Well-known profile names.
const (
	ProfileDefault        = "default"
	ProfileFactoryDefault = "factory-default"
)

// Trust configuration.
const (
	// TrustKey is the QoS config key holding the trust mode
	TrustKey = "qos_trust"

	TrustNone    = "none"
	TrustCos     = "cos"
	TrustDscp    = "dscp"
	TrustDscpCos = "dscp-cos"

	// TrustDefault is the mode set by bootstrap
	TrustDefault = TrustNone
)

// Table sizes and ranges.
const (
	CosMapEntryCount  = 8
	DscpMapEntryCount = 64
	MaxLocalPriority  = 7
	MaxQueue          = 7
	QueueCount        = MaxQueue + 1
)

// Row defaults.
const (
	DefaultColor       = models.ColorGreen
	DefaultDescription = ""
)

// TrustModes lists the accepted trust modes.
func TrustModes() []string {
	return []string{TrustNone, TrustCos, TrustDscp, TrustDscpCos}
}

// ValidTrustMode reports whether mode is an accepted trust mode.
func ValidTrustMode(mode string) bool {
	for _, m := range TrustModes() {
		if m == mode {
			return true
		}
	}
	return false
}

// CosRow is one row of the default CoS map.
type CosRow struct {
	CodePoint     int
	LocalPriority int
	Color         models.Color
	Description   string
}

// DscpRow is one row of the default DSCP map.
type DscpRow struct {
	CodePoint         int
	LocalPriority     int
	PriorityCodePoint int
	Color             models.Color
	Description       string
}

// QueueSchedule is the default scheduling of one queue. Weight is zero for
// strict queues.
type QueueSchedule struct {
	Queue     int
	Algorithm models.Algorithm
	Weight    int
}

// QueueMapping is the default set of local priorities mapped to one queue.
type QueueMapping struct {
	Queue           int
	LocalPriorities []int
}

var cosMap = [CosMapEntryCount]CosRow{
	{0, 1, models.ColorGreen, "Best_Effort"},
	{1, 0, models.ColorGreen, "Background"},
	{2, 2, models.ColorGreen, "Excellent_Effort"},
	{3, 3, models.ColorGreen, "Critical_Applications"},
	{4, 4, models.ColorGreen, "Video"},
	{5, 5, models.ColorGreen, "Voice"},
	{6, 6, models.ColorGreen, "Internetwork_Control"},
	{7, 7, models.ColorGreen, "Network_Control"},
}

const (
	green  = models.ColorGreen
	yellow = models.ColorYellow
	red    = models.ColorRed
)

var dscpMap = [DscpMapEntryCount]DscpRow{
	{0, 0, 1, green, "CS0"},
	{1, 0, 1, green, ""},
	{2, 0, 1, green, ""},
	{3, 0, 1, green, ""},
	{4, 0, 1, green, ""},
	{5, 0, 1, green, ""},
	{6, 0, 1, green, ""},
	{7, 0, 1, green, ""},
	{8, 1, 0, green, "CS1"},
	{9, 1, 0, green, ""},
	{10, 1, 0, green, "AF11"},
	{11, 1, 0, green, ""},
	{12, 1, 0, yellow, "AF12"},
	{13, 1, 0, green, ""},
	{14, 1, 0, red, "AF13"},
	{15, 1, 0, green, ""},
	{16, 2, 2, green, "CS2"},
	{17, 2, 2, green, ""},
	{18, 2, 2, green, "AF21"},
	{19, 2, 2, green, ""},
	{20, 2, 2, yellow, "AF22"},
	{21, 2, 2, green, ""},
	{22, 2, 2, red, "AF23"},
	{23, 2, 2, green, ""},
	{24, 3, 3, green, "CS3"},
	{25, 3, 3, green, ""},
	{26, 3, 3, green, "AF31"},
	{27, 3, 3, green, ""},
	{28, 3, 3, yellow, "AF32"},
	{29, 3, 3, green, ""},
	{30, 3, 3, red, "AF33"},
	{31, 3, 3, green, ""},
	{32, 4, 4, green, "CS4"},
	{33, 4, 4, green, ""},
	{34, 4, 4, green, "AF41"},
	{35, 4, 4, green, ""},
	{36, 4, 4, yellow, "AF42"},
	{37, 4, 4, green, ""},
	{38, 4, 4, red, "AF43"},
	{39, 4, 4, green, ""},
	{40, 5, 5, green, "CS5"},
	{41, 5, 5, green, ""},
	{42, 5, 5, green, ""},
	{43, 5, 5, green, ""},
	{44, 5, 5, green, ""},
	{45, 5, 5, green, ""},
	{46, 5, 5, green, "EF"},
	{47, 5, 5, green, ""},
	{48, 6, 6, green, "CS6"},
	{49, 6, 6, green, ""},
	{50, 6, 6, green, ""},
	{51, 6, 6, green, ""},
	{52, 6, 6, green, ""},
	{53, 6, 6, green, ""},
	{54, 6, 6, green, ""},
	{55, 6, 6, green, ""},
	{56, 7, 7, green, "CS7"},
	{57, 7, 7, green, ""},
	{58, 7, 7, green, ""},
	{59, 7, 7, green, ""},
	{60, 7, 7, green, ""},
	{61, 7, 7, green, ""},
	{62, 7, 7, green, ""},
	{63, 7, 7, green, ""},
}

// CosMap returns the default CoS map, ordered by code point.
func CosMap() []CosRow {
	rows := make([]CosRow, len(cosMap))
	copy(rows, cosMap[:])
	return rows
}

// DscpMap returns the default DSCP map, ordered by code point.
func DscpMap() []DscpRow {
	rows := make([]DscpRow, len(dscpMap))
	copy(rows, dscpMap[:])
	return rows
}

// Schedule returns the default queue scheduling layout: queue 7 strict,
// queues 6 down to 0 weighted round robin with weights 7 down to 1.
func Schedule() []QueueSchedule {
	out := make([]QueueSchedule, 0, QueueCount)
	out = append(out, QueueSchedule{Queue: MaxQueue, Algorithm: models.AlgorithmStrict})
	for q := MaxQueue - 1; q >= 0; q-- {
		out = append(out, QueueSchedule{Queue: q, Algorithm: models.AlgorithmWRR, Weight: q + 1})
	}
	return out
}

// QueueMappings returns the default queue mapping layout: queue N carries
// local priority N.
func QueueMappings() []QueueMapping {
	out := make([]QueueMapping, 0, QueueCount)
	for q := MaxQueue; q >= 0; q-- {
		out = append(out, QueueMapping{Queue: q, LocalPriorities: []int{q}})
	}
	return out
}

// HWDefaults returns the factory values of the row in the form saved on
// every live CoS map record.
func (row CosRow) HWDefaults() map[string]string {
	return map[string]string{
		models.HWDefaultCodePointKey:     strconv.Itoa(row.CodePoint),
		models.HWDefaultLocalPriorityKey: strconv.Itoa(row.LocalPriority),
		models.HWDefaultColorKey:         string(row.Color),
		models.HWDefaultDescriptionKey:   row.Description,
	}
}

// HWDefaults returns the factory values of the row in the form saved on
// every live DSCP map record.
func (row DscpRow) HWDefaults() map[string]string {
	return map[string]string{
		models.HWDefaultCodePointKey:         strconv.Itoa(row.CodePoint),
		models.HWDefaultLocalPriorityKey:     strconv.Itoa(row.LocalPriority),
		models.HWDefaultPriorityCodePointKey: strconv.Itoa(row.PriorityCodePoint),
		models.HWDefaultColorKey:             string(row.Color),
		models.HWDefaultDescriptionKey:       row.Description,
	}
}

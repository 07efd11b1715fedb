package mavlink

// Message ids referenced directly by the decoder.
const (
	MsgIDHeartbeat         uint32 = 0
	MsgIDGlobalPositionInt uint32 = 33
)

// HeadingUnknown is the raw hdg value meaning "not available".
const HeadingUnknown = 0xFFFF

// Field describes one fixed-width integer in a message payload.
type Field struct {
	Name   string
	Offset int
	Width  int // bytes: 1, 2 or 4
	Signed bool
}

// MessageSpec is one schema table entry.
//
// Every entry carries the CRC_EXTRA needed to validate the frame. Only entries
// with Decode set are turned into samples; the rest are validated and skipped.
type MessageSpec struct {
	ID       uint32
	Name     string
	CRCExtra byte
	Length   int
	Fields   []Field
	Decode   bool
}

// Field returns the layout entry with the given name.
func (m *MessageSpec) Field(name string) (Field, bool) {
	for _, f := range m.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

var globalPositionInt = &MessageSpec{
	ID:       MsgIDGlobalPositionInt,
	Name:     "GLOBAL_POSITION_INT",
	CRCExtra: 104,
	Length:   28,
	Decode:   true,
	Fields: []Field{
		{Name: "time_boot_ms", Offset: 0, Width: 4},
		{Name: "lat", Offset: 4, Width: 4, Signed: true},           // degE7
		{Name: "lon", Offset: 8, Width: 4, Signed: true},           // degE7
		{Name: "alt", Offset: 12, Width: 4, Signed: true},          // mm, MSL
		{Name: "relative_alt", Offset: 16, Width: 4, Signed: true}, // mm
		{Name: "vx", Offset: 20, Width: 2, Signed: true},           // cm/s
		{Name: "vy", Offset: 22, Width: 2, Signed: true},           // cm/s
		{Name: "vz", Offset: 24, Width: 2, Signed: true},           // cm/s
		{Name: "hdg", Offset: 26, Width: 2},                        // cdeg, 0xFFFF unknown
	},
}

// Validated-only entries. Lengths are the MAVLink 1 base lengths.
var passthrough = []*MessageSpec{
	{ID: MsgIDHeartbeat, Name: "HEARTBEAT", CRCExtra: 50, Length: 9},
	{ID: 1, Name: "SYS_STATUS", CRCExtra: 124, Length: 31},
	{ID: 2, Name: "SYSTEM_TIME", CRCExtra: 137, Length: 12},
	{ID: 22, Name: "PARAM_VALUE", CRCExtra: 220, Length: 25},
	{ID: 24, Name: "GPS_RAW_INT", CRCExtra: 24, Length: 30},
	{ID: 27, Name: "RAW_IMU", CRCExtra: 144, Length: 26},
	{ID: 29, Name: "SCALED_PRESSURE", CRCExtra: 115, Length: 14},
	{ID: 30, Name: "ATTITUDE", CRCExtra: 39, Length: 28},
	{ID: 32, Name: "LOCAL_POSITION_NED", CRCExtra: 185, Length: 28},
	{ID: 35, Name: "RC_CHANNELS_RAW", CRCExtra: 244, Length: 22},
	{ID: 36, Name: "SERVO_OUTPUT_RAW", CRCExtra: 222, Length: 21},
	{ID: 42, Name: "MISSION_CURRENT", CRCExtra: 28, Length: 2},
	{ID: 62, Name: "NAV_CONTROLLER_OUTPUT", CRCExtra: 183, Length: 26},
	{ID: 65, Name: "RC_CHANNELS", CRCExtra: 118, Length: 42},
	{ID: 74, Name: "VFR_HUD", CRCExtra: 20, Length: 20},
	{ID: 76, Name: "COMMAND_LONG", CRCExtra: 152, Length: 33},
	{ID: 77, Name: "COMMAND_ACK", CRCExtra: 143, Length: 3},
	{ID: 111, Name: "TIMESYNC", CRCExtra: 34, Length: 16},
	{ID: 147, Name: "BATTERY_STATUS", CRCExtra: 154, Length: 36},
	{ID: 253, Name: "STATUSTEXT", CRCExtra: 83, Length: 51},
}

var schema = buildSchema()

func buildSchema() map[uint32]*MessageSpec {
	m := make(map[uint32]*MessageSpec, len(passthrough)+1)
	for _, spec := range passthrough {
		m[spec.ID] = spec
	}
	m[globalPositionInt.ID] = globalPositionInt
	return m
}

// Lookup returns the schema entry for a message id.
func Lookup(id uint32) (*MessageSpec, bool) {
	spec, ok := schema[id]
	return spec, ok
}

// Supported reports whether frames with this id are decoded into samples.
func Supported(id uint32) bool {
	spec, ok := schema[id]
	return ok && spec.Decode
}

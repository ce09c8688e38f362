package protocol

import "fmt"

// GatewayStatus is the operating status reported by the gateway.
type GatewayStatus int

const (
	GatewayStatusUnknown  GatewayStatus = -1
	GatewayStatusWorking  GatewayStatus = 1
	GatewayStatusPairing  GatewayStatus = 2
	GatewayStatusUpdating GatewayStatus = 3
)

// GatewayStatusFromWire resolves a raw wire value. Values outside the known
// set resolve to GatewayStatusUnknown with ok false.
func GatewayStatusFromWire(v int) (GatewayStatus, bool) {
	switch GatewayStatus(v) {
	case GatewayStatusWorking, GatewayStatusPairing, GatewayStatusUpdating:
		return GatewayStatus(v), true
	}
	return GatewayStatusUnknown, false
}

func (s GatewayStatus) String() string {
	switch s {
	case GatewayStatusWorking:
		return "Working"
	case GatewayStatusPairing:
		return "Pairing"
	case GatewayStatusUpdating:
		return "Updating"
	case GatewayStatusUnknown:
		return "Unknown"
	default:
		return fmt.Sprintf("GatewayStatus(%d)", int(s))
	}
}

// BlindType identifies the mechanical model of a cover.
type BlindType int

const (
	BlindTypeUnknown            BlindType = -1
	BlindTypeRollerBlind        BlindType = 1
	BlindTypeVenetianBlind      BlindType = 2
	BlindTypeRomanBlind         BlindType = 3
	BlindTypeHoneycombBlind     BlindType = 4
	BlindTypeShangriLaBlind     BlindType = 5
	BlindTypeRollerShutter      BlindType = 6
	BlindTypeRollerGate         BlindType = 7
	BlindTypeAwning             BlindType = 8
	BlindTypeTopDownBottomUp    BlindType = 9
	BlindTypeDayNightBlind      BlindType = 10
	BlindTypeDimmingBlind       BlindType = 11
	BlindTypeCurtain            BlindType = 12
	BlindTypeCurtainLeft        BlindType = 13
	BlindTypeCurtainRight       BlindType = 14
	BlindTypeDoubleRoller       BlindType = 17
	BlindTypeVerticalBlindLeft  BlindType = 21
	BlindTypeWoodShutter        BlindType = 22
	BlindTypeSkylightBlind      BlindType = 26
	BlindTypeDualShade          BlindType = 27
	BlindTypeVerticalBlind      BlindType = 28
	BlindTypeVerticalBlindRight BlindType = 29
	BlindTypeSwitch             BlindType = 43
)

var blindTypeNames = map[BlindType]string{
	BlindTypeRollerBlind:        "RollerBlind",
	BlindTypeVenetianBlind:      "VenetianBlind",
	BlindTypeRomanBlind:         "RomanBlind",
	BlindTypeHoneycombBlind:     "HoneycombBlind",
	BlindTypeShangriLaBlind:     "ShangriLaBlind",
	BlindTypeRollerShutter:      "RollerShutter",
	BlindTypeRollerGate:         "RollerGate",
	BlindTypeAwning:             "Awning",
	BlindTypeTopDownBottomUp:    "TopDownBottomUp",
	BlindTypeDayNightBlind:      "DayNightBlind",
	BlindTypeDimmingBlind:       "DimmingBlind",
	BlindTypeCurtain:            "Curtain",
	BlindTypeCurtainLeft:        "CurtainLeft",
	BlindTypeCurtainRight:       "CurtainRight",
	BlindTypeDoubleRoller:       "DoubleRoller",
	BlindTypeVerticalBlindLeft:  "VerticalBlindLeft",
	BlindTypeWoodShutter:        "WoodShutter",
	BlindTypeSkylightBlind:      "SkylightBlind",
	BlindTypeDualShade:          "DualShade",
	BlindTypeVerticalBlind:      "VerticalBlind",
	BlindTypeVerticalBlindRight: "VerticalBlindRight",
	BlindTypeSwitch:             "Switch",
}

// BlindTypeFromWire resolves a raw wire value. Values outside the known set
// resolve to BlindTypeUnknown with ok false.
func BlindTypeFromWire(v int) (BlindType, bool) {
	if _, known := blindTypeNames[BlindType(v)]; known {
		return BlindType(v), true
	}
	return BlindTypeUnknown, false
}

func (t BlindType) String() string {
	if name, ok := blindTypeNames[t]; ok {
		return name
	}
	if t == BlindTypeUnknown {
		return "Unknown"
	}
	return fmt.Sprintf("BlindType(%d)", int(t))
}

// BlindStatus is the motion status of a cover.
type BlindStatus int

const (
	BlindStatusUnknown     BlindStatus = -1
	BlindStatusClosing     BlindStatus = 0
	BlindStatusOpening     BlindStatus = 1
	BlindStatusStopped     BlindStatus = 2
	BlindStatusStatusQuery BlindStatus = 5
	BlindStatusFirmwareBug BlindStatus = 6
	BlindStatusJogUp       BlindStatus = 7
	BlindStatusJogDown     BlindStatus = 8
)

// BlindStatusFromWire resolves a raw wire value. Values outside the known
// set resolve to BlindStatusUnknown with ok false.
func BlindStatusFromWire(v int) (BlindStatus, bool) {
	switch BlindStatus(v) {
	case BlindStatusClosing, BlindStatusOpening, BlindStatusStopped,
		BlindStatusStatusQuery, BlindStatusFirmwareBug,
		BlindStatusJogUp, BlindStatusJogDown:
		return BlindStatus(v), true
	}
	return BlindStatusUnknown, false
}

func (s BlindStatus) String() string {
	switch s {
	case BlindStatusClosing:
		return "Closing"
	case BlindStatusOpening:
		return "Opening"
	case BlindStatusStopped:
		return "Stopped"
	case BlindStatusStatusQuery:
		return "StatusQuery"
	case BlindStatusFirmwareBug:
		return "FirmwareBug"
	case BlindStatusJogUp:
		return "JogUp"
	case BlindStatusJogDown:
		return "JogDown"
	case BlindStatusUnknown:
		return "Unknown"
	default:
		return fmt.Sprintf("BlindStatus(%d)", int(s))
	}
}

// LimitStatus is the limit-detection status of a cover's motor.
type LimitStatus int

const (
	LimitStatusUnknown     LimitStatus = -1
	LimitStatusNoLimit     LimitStatus = 0
	LimitStatusTopLimit    LimitStatus = 1
	LimitStatusBottomLimit LimitStatus = 2
	LimitStatusLimits      LimitStatus = 3
	LimitStatusLimit3      LimitStatus = 4
)

// LimitStatusFromWire resolves a raw wire value. Values outside the known
// set resolve to LimitStatusUnknown with ok false.
func LimitStatusFromWire(v int) (LimitStatus, bool) {
	switch LimitStatus(v) {
	case LimitStatusNoLimit, LimitStatusTopLimit, LimitStatusBottomLimit,
		LimitStatusLimits, LimitStatusLimit3:
		return LimitStatus(v), true
	}
	return LimitStatusUnknown, false
}

func (s LimitStatus) String() string {
	switch s {
	case LimitStatusNoLimit:
		return "NoLimit"
	case LimitStatusTopLimit:
		return "TopLimit"
	case LimitStatusBottomLimit:
		return "BottomLimit"
	case LimitStatusLimits:
		return "Limits"
	case LimitStatusLimit3:
		return "Limit3"
	case LimitStatusUnknown:
		return "Unknown"
	default:
		return fmt.Sprintf("LimitStatus(%d)", int(s))
	}
}

// VoltageMode is the power supply mode of a cover.
type VoltageMode int

const (
	VoltageModeUnknown VoltageMode = -1
	VoltageModeAC      VoltageMode = 0
	VoltageModeDC      VoltageMode = 1
)

// VoltageModeFromWire resolves a raw wire value. Values outside the known
// set resolve to VoltageModeUnknown with ok false.
func VoltageModeFromWire(v int) (VoltageMode, bool) {
	switch VoltageMode(v) {
	case VoltageModeAC, VoltageModeDC:
		return VoltageMode(v), true
	}
	return VoltageModeUnknown, false
}

func (m VoltageMode) String() string {
	switch m {
	case VoltageModeAC:
		return "AC"
	case VoltageModeDC:
		return "DC"
	case VoltageModeUnknown:
		return "Unknown"
	default:
		return fmt.Sprintf("VoltageMode(%d)", int(m))
	}
}

// WirelessMode governs which status fields a cover can report.
type WirelessMode int

const (
	WirelessModeUnknown WirelessMode = -1

	// WirelessModeUniDirection covers only receive commands; they cannot
	// report limit, position or battery state.
	WirelessModeUniDirection WirelessMode = 0

	// WirelessModeBiDirection covers report full state.
	WirelessModeBiDirection WirelessMode = 1

	// WirelessModeBiDirectionLimits covers report limits and battery but no
	// meaningful position.
	WirelessModeBiDirectionLimits WirelessMode = 2

	// WirelessModeWiFi covers talk to the network directly without a
	// gateway radio hop.
	WirelessModeWiFi WirelessMode = 3

	// WirelessModeVirtualPercentage covers derive position from motor turns;
	// position is only trustworthy once both limits have been detected.
	WirelessModeVirtualPercentage WirelessMode = 4
)

// WirelessModeFromWire resolves a raw wire value. Values outside the known
// set resolve to WirelessModeUnknown with ok false.
func WirelessModeFromWire(v int) (WirelessMode, bool) {
	switch WirelessMode(v) {
	case WirelessModeUniDirection, WirelessModeBiDirection,
		WirelessModeBiDirectionLimits, WirelessModeWiFi,
		WirelessModeVirtualPercentage:
		return WirelessMode(v), true
	}
	return WirelessModeUnknown, false
}

func (m WirelessMode) String() string {
	switch m {
	case WirelessModeUniDirection:
		return "UniDirection"
	case WirelessModeBiDirection:
		return "BiDirection"
	case WirelessModeBiDirectionLimits:
		return "BiDirectionLimits"
	case WirelessModeWiFi:
		return "WiFi"
	case WirelessModeVirtualPercentage:
		return "VirtualPercentage"
	case WirelessModeUnknown:
		return "Unknown"
	default:
		return fmt.Sprintf("WirelessMode(%d)", int(m))
	}
}

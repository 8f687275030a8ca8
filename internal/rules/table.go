package rules

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"hims.app/advisor/internal/model"
)

var (
	codeRe       = regexp.MustCompile(`^[A-Z][A-Z0-9_-]*$`)
	gstinRe      = regexp.MustCompile(`^\d{2}[A-Z]{5}\d{4}[A-Z]\d[Z][A-Z0-9]$`)
	panRe        = regexp.MustCompile(`^[A-Z]{5}\d{4}[A-Z]$`)
	costNumRe    = regexp.MustCompile(`^\d{3,10}$`)
	costAlnumRe  = regexp.MustCompile(`(?i)^[A-Z0-9]{2,10}$`)
	criticalCare = map[string]struct{}{
		"ICU": {}, "HDU": {}, "CCU": {}, "NICU": {}, "PICU": {}, "SICU": {}, "MICU": {},
	}
)

func defaultRules() []Rule {
	return []Rule{
		{Field: "code", Check: nonEmpty(checkCode)},
		{Field: "name", Check: nonEmpty(checkName)},
		{Field: "gstNumber", Check: nonEmpty(formatCheck(gstinRe,
			"GSTIN format appears invalid. Expected: 15-character format (e.g., 27AACCT1234A1ZV)."))},
		{Field: "panNumber", Check: nonEmpty(formatCheck(panRe,
			"PAN format appears invalid. Expected: 10-character format (e.g., AACCT1234A)."))},

		{Module: "room", Field: "hasOxygen", Check: amenityCheck("oxygen supply")},
		{Module: "room", Field: "hasSuction", Check: amenityCheck("suction")},
		{Module: "room", Field: "maxOccupancy", Check: checkICUOccupancy},

		{Module: "branch", Field: "bedCount", Check: nonEmpty(checkBedCount)},

		{Module: "resource", Field: "state", Check: checkResourceState},

		{Module: "specialty", Field: "code", Check: nonEmpty(lengthCheck(2, 10,
			"Specialty codes should be at least 2 characters (e.g., CARDIO, ORTHO).",
			"Specialty codes are typically 2-10 characters. Keep them concise for easy reference."))},

		{Module: "department", Field: "code", Check: nonEmpty(lengthCheck(2, 20,
			"Department codes should be at least 2 characters (e.g., CARDIOLOGY, GEN-SURG).",
			"Department codes are typically 2-20 characters. Consider abbreviating."))},
		{Module: "department", Field: "costCenterCode", Check: nonEmpty(checkCostCenter)},

		{Module: "unitType", Field: "code", Check: nonEmpty(lengthCheck(0, 15, "",
			"Unit type codes should be concise (e.g., ICU, OPD, ER, WARD, OT)."))},

		{Module: "unit", Field: "totalBedCapacity", Check: nonEmpty(checkICUUnitCapacity)},
		{Module: "unit", Field: "code", Check: nonEmpty(lengthCheck(2, 0,
			"Unit codes should be at least 2 characters.", ""))},
	}
}

func checkCode(value string, _ map[string]any) []model.FieldWarning {
	trimmed := strings.TrimSpace(value)
	if strings.Contains(trimmed, " ") {
		return warning(model.LevelWarning,
			"Codes should not contain spaces. Use UPPER_SNAKE_CASE (e.g., GENERAL_WARD).")
	}
	if !codeRe.MatchString(trimmed) {
		return warning(model.LevelWarning,
			"Code should be uppercase with letters, numbers, underscores, or hyphens.")
	}
	return nil
}

func checkName(value string, _ map[string]any) []model.FieldWarning {
	trimmed := strings.TrimSpace(value)
	if trimmed != "" && trimmed == strings.ToLower(trimmed) && utf8.RuneCountInString(trimmed) > 2 {
		return warning(model.LevelInfo, "Consider using Title Case for better readability.")
	}
	return nil
}

func formatCheck(re *regexp.Regexp, message string) Check {
	return func(value string, _ map[string]any) []model.FieldWarning {
		upper := upperTrim(value)
		if upper != "" && !re.MatchString(upper) {
			return warning(model.LevelWarning, message)
		}
		return nil
	}
}

// lengthCheck warns below min and informs above max. Zero disables a bound.
func lengthCheck(lo, hi int, short, long string) Check {
	return func(value string, _ map[string]any) []model.FieldWarning {
		n := utf8.RuneCountInString(upperTrim(value))
		var out []model.FieldWarning
		if lo > 0 && n > 0 && n < lo {
			out = append(out, model.FieldWarning{Level: model.LevelWarning, Message: short})
		}
		if hi > 0 && n > hi {
			out = append(out, model.FieldWarning{Level: model.LevelInfo, Message: long})
		}
		return out
	}
}

func amenityCheck(amenity string) Check {
	return func(value string, ctx map[string]any) []model.FieldWarning {
		if !isCriticalCare(ctx) {
			return nil
		}
		if value == "false" || value == "" || value == "0" {
			return warning(model.LevelCritical, fmt.Sprintf(
				"ICU rooms require %s. NABH mandates 100%% coverage in critical care areas.", amenity))
		}
		return nil
	}
}

func checkICUOccupancy(value string, ctx map[string]any) []model.FieldWarning {
	if !isCriticalCare(ctx) {
		return nil
	}
	if occ, ok := leadingInt(value); ok && occ > 1 {
		return warning(model.LevelWarning, "ICU rooms typically have max occupancy of 1 for patient safety.")
	}
	return nil
}

func checkBedCount(value string, ctx map[string]any) []model.FieldWarning {
	if beds, ok := leadingInt(value); ok && beds > 50 && !truthy(ctx["hasIcuUnit"]) {
		return warning(model.LevelWarning,
			"Hospitals with 50+ beds should have ICU. Consider allocating 10-15% of beds to ICU.")
	}
	return nil
}

func checkResourceState(value string, ctx map[string]any) []model.FieldWarning {
	switch {
	case value == "RESERVED" && !truthy(ctx["reservedReason"]):
		return warning(model.LevelWarning, "A reason is required when reserving a resource.")
	case value == "BLOCKED" && !truthy(ctx["blockedReason"]):
		return warning(model.LevelWarning, "A reason is required when blocking a resource.")
	}
	return nil
}

func checkCostCenter(value string, _ map[string]any) []model.FieldWarning {
	trimmed := strings.TrimSpace(value)
	if trimmed != "" && !costNumRe.MatchString(trimmed) && !costAlnumRe.MatchString(trimmed) {
		return warning(model.LevelInfo,
			"Cost center codes are typically numeric (e.g., 1001) or short alphanumeric (e.g., CC01).")
	}
	return nil
}

func checkICUUnitCapacity(value string, ctx map[string]any) []model.FieldWarning {
	if beds, ok := leadingInt(value); ok && beds > 20 && isCriticalCare(ctx) {
		return warning(model.LevelInfo, "ICU units typically have 8-20 beds for effective patient monitoring.")
	}
	return nil
}

func isCriticalCare(ctx map[string]any) bool {
	v, ok := ctx["unitTypeCode"]
	if !ok || v == nil {
		return false
	}
	_, hit := criticalCare[strings.ToUpper(fmt.Sprint(v))]
	return hit
}

// leadingInt parses the leading decimal integer of s, ignoring trailing text
// ("12 beds" is 12). Leading whitespace and a sign are accepted.
func leadingInt(s string) (int, bool) {
	s = strings.TrimLeftFunc(s, unicode.IsSpace)
	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0, false
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, false
	}
	return n, true
}

// truthy reports whether a form context value counts as set.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case float64:
		return t != 0 && !math.IsNaN(t)
	case int:
		return t != 0
	case int64:
		return t != 0
	default:
		return true
	}
}

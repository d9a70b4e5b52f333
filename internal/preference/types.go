// Package preference は志望条件インテークフローを提供する。
// フォーム上の表示ラベルとバックエンドのenum値の変換、数値強制変換、
// 保存→推薦取得のオーケストレーションを含む。
package preference

import (
	"math"
	"strconv"
	"strings"
)

// 表示ラベル→バックエンドenum値のマッピング。
// 未知のラベルはバックエンドenum値そのものとして通し、
// それ以外は空文字列になる（送信前バリデーションで検出される）。
var (
	schoolTypeLabels = map[string]string{
		"Private": "PRIVATE",
		"Public":  "PUBLIC",
		"Both":    "BOTH",
	}
	enrollmentTypeLabels = map[string]string{
		"Full-time": "FULL_TIME",
		"Part-time": "PART_TIME",
	}
	modalityLabels = map[string]string{
		"In person": "IN_PERSON",
		"Hybrid":    "HYBRID",
		"Online":    "ONLINE",
	}
	requirementTypeLabels = map[string]string{
		"Capstone": "CAPSTONE",
		"Neither":  "NEITHER",
		"GRE":      "GRE",
		"Both":     "BOTH",
	}
)

// mapLabel はラベルをenum値に変換する。enum値そのものが渡された場合はそのまま返す。
func mapLabel(labels map[string]string, value string) string {
	if mapped, ok := labels[value]; ok {
		return mapped
	}
	upper := strings.ToUpper(strings.TrimSpace(value))
	for _, enum := range labels {
		if enum == upper {
			return enum
		}
	}
	return ""
}

// MapSchoolType は学校区分のラベルをenum値に変換する。
func MapSchoolType(value string) string { return mapLabel(schoolTypeLabels, value) }

// MapEnrollmentType は在籍形態のラベルをenum値に変換する。
func MapEnrollmentType(value string) string { return mapLabel(enrollmentTypeLabels, value) }

// MapModality は受講形態のラベルをenum値に変換する。
func MapModality(value string) string { return mapLabel(modalityLabels, value) }

// MapRequirementType は修了要件のラベルをenum値に変換する。
func MapRequirementType(value string) string { return mapLabel(requirementTypeLabels, value) }

// MapRequirementToggles はcapstone/greの2つのトグル状態をenum値に変換する。
// 両方オンはBOTH、両方オフはNEITHERになる。
func MapRequirementToggles(capstone, gre bool) string {
	switch {
	case capstone && gre:
		return "BOTH"
	case capstone:
		return "CAPSTONE"
	case gre:
		return "GRE"
	default:
		return "NEITHER"
	}
}

// CoerceNumber はフォーム入力の数値文字列を有限のfloat64に強制変換する。
// パースできない・NaN・無限大の場合は0を返す。
func CoerceNumber(value string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

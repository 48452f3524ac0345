package report

import (
	"fmt"
	"strings"

	"vital-monitor/internal/models"
)

// ChannelStats summarizes one channel over a report period.
type ChannelStats struct {
	Mean float64
	Min  float64
	Max  float64
}

// statsOf computes mean/min/max over a series.
func statsOf(values []float64) ChannelStats {
	if len(values) == 0 {
		return ChannelStats{}
	}
	s := ChannelStats{Min: values[0], Max: values[0]}
	var sum float64
	for _, v := range values {
		sum += v
		if v < s.Min {
			s.Min = v
		}
		if v > s.Max {
			s.Max = v
		}
	}
	s.Mean = sum / float64(len(values))
	return s
}

// DesaturationEpisodes counts measurements with SpO2 below the configured
// low threshold.
func DesaturationEpisodes(measurements []models.Measurement, spo2Low int) int {
	count := 0
	for _, m := range measurements {
		if m.SpO2 < spo2Low {
			count++
		}
	}
	return count
}

// Format renders the comprehensive text report for a period:
// per-channel statistics, desaturation episode count, and the forecaster
// and anomaly scorer outputs.
func Format(subjectName string, hours int, measurements []models.Measurement, spo2Low int, forecastMsg, anomalyMsg string) string {
	if len(measurements) == 0 {
		return "Aucune donnée disponible pour cette période"
	}

	n := len(measurements)
	spo2 := make([]float64, n)
	hr := make([]float64, n)
	rr := make([]float64, n)
	temp := make([]float64, n)
	sys := make([]float64, n)
	dia := make([]float64, n)
	for i, m := range measurements {
		spo2[i] = float64(m.SpO2)
		hr[i] = float64(m.HeartRate)
		rr[i] = float64(m.RespiratoryRate)
		temp[i] = m.Temperature
		sys[i] = float64(m.SystolicBP)
		dia[i] = float64(m.DiastolicBP)
	}

	spo2Stats := statsOf(spo2)
	hrStats := statsOf(hr)
	rrStats := statsOf(rr)
	tempStats := statsOf(temp)
	sysStats := statsOf(sys)
	diaStats := statsOf(dia)

	var b strings.Builder
	fmt.Fprintf(&b, "RAPPORT COMPLET - %s\n", subjectName)
	fmt.Fprintf(&b, "Période: %d heures\n", hours)
	b.WriteString("----------------------------------------\n")
	b.WriteString("Valeurs moyennes:\n")
	fmt.Fprintf(&b, "- SpO2: %.1f%%\n", spo2Stats.Mean)
	fmt.Fprintf(&b, "- Fréquence cardiaque: %.1f bpm\n", hrStats.Mean)
	fmt.Fprintf(&b, "- Fréquence respiratoire: %.1f rpm\n", rrStats.Mean)
	fmt.Fprintf(&b, "- Température: %.1f °C\n", tempStats.Mean)
	fmt.Fprintf(&b, "- Pression artérielle: %.1f/%.1f mmHg\n", sysStats.Mean, diaStats.Mean)
	b.WriteString("\nValeurs extrêmes:\n")
	fmt.Fprintf(&b, "- SpO2 min: %.0f%%\n", spo2Stats.Min)
	fmt.Fprintf(&b, "- SpO2 max: %.0f%%\n", spo2Stats.Max)
	fmt.Fprintf(&b, "- FC max: %.0f bpm\n", hrStats.Max)
	fmt.Fprintf(&b, "- FR max: %.0f rpm\n", rrStats.Max)
	fmt.Fprintf(&b, "\nÉpisodes de désaturation (SpO2 < %d%%): %d\n",
		spo2Low, DesaturationEpisodes(measurements, spo2Low))
	b.WriteString("\nAnalyse de prédiction:\n")
	b.WriteString(forecastMsg)
	b.WriteString("\n\nDétection d'anomalies:\n")
	b.WriteString(anomalyMsg)
	b.WriteString("\n")

	return b.String()
}

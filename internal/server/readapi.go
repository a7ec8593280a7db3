package server

import (
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/loadline/loadline/internal/mailer"
	"github.com/loadline/loadline/internal/metrics"
	"github.com/loadline/loadline/internal/models"
	"github.com/loadline/loadline/internal/summary"
)

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// handleSchema mints a fresh call id and returns the data shape. Workflow
// builders hit this at the start of a call and thread the id through every
// later webhook so the events group together.
func (s *Server) handleSchema(c *gin.Context) {
	callID := "call_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	c.JSON(http.StatusOK, gin.H{
		"call_id":   callID,
		"verified":  false,
		"mc_number": "",
		"carrier":   gin.H{"legal_name": "", "dot_number": ""},
		"lane":      gin.H{"origin": "", "destination": "", "pickup_datetime": "", "equipment_type": ""},
		"load":      gin.H{"load_id": "", "rate": 0, "call_id": callID},
		"outcome":   "",
	})
}

func (s *Server) handleLiveData(c *gin.Context) {
	events, err := s.events.Recent(20)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	activeCalls, err := s.prefs.RecentPrefs(10)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	carriers, err := s.profiles.Recent(10)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	totalEvents, err := s.events.Count()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	totalCalls, err := s.prefs.Count()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"stats": gin.H{
			"total_events":   totalEvents,
			"total_calls":    totalCalls,
			"total_carriers": len(carriers),
		},
		"recent_events": events,
		"active_calls":  activeCalls,
		"carriers":      carriers,
	})
}

// handleCallSummary narrates the most recent meaningful call in plain text
// for the dashboard's top cards.
func (s *Server) handleCallSummary(c *gin.Context) {
	callID, err := s.events.LatestCallWithType(models.EventCarrierVerified, models.EventNegotiationRound)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if callID == "" {
		callID, err = s.events.LatestCallWithType()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
	}
	if callID == "" {
		c.JSON(http.StatusOK, gin.H{
			"ok": true, "call_id": nil,
			"carrier_summary":   "No calls yet.",
			"load_summary":      "No load data yet.",
			"outcome_summary":   "No negotiation outcome yet.",
			"sentiment_summary": "No sentiment captured yet.",
		})
		return
	}

	sum, _ := s.buildSummary(callID)

	carrierSummary := "Eligibility not recorded."
	if sum.Verified != nil {
		name := sum.CarrierName
		if name == "" {
			name = "Unknown carrier"
		}
		mc := sum.MCNumber
		if mc == "" {
			mc = "Unknown"
		}
		carrierSummary = fmt.Sprintf("Carrier %s (MC %s). Eligible: %v.", name, mc, *sum.Verified)
	}

	loadSummary := "No load data yet."
	if sum.Load != nil {
		parts := []string{fmt.Sprintf("Load from %s to %s with %s.",
			orUnknown(sum.Load.Origin), orUnknown(sum.Load.Destination), orUnknown(sum.Load.EquipmentType))}
		if sum.Load.LoadboardRate > 0 {
			parts = append(parts, fmt.Sprintf("Listed rate $%.0f.", sum.Load.LoadboardRate))
		}
		if sum.Load.Miles > 0 {
			parts = append(parts, fmt.Sprintf("~%.0f miles.", sum.Load.Miles))
		}
		if sum.Load.CommodityType != "" {
			parts = append(parts, fmt.Sprintf("Commodity: %s.", sum.Load.CommodityType))
		}
		loadSummary = strings.Join(parts, " ")
	}
	if prefs, err := s.prefs.Get(callID); err == nil && prefs != nil {
		if prefs.MinTemp != nil || prefs.MaxTemp != nil {
			var temps []string
			if prefs.MinTemp != nil {
				temps = append(temps, fmt.Sprintf("%g", *prefs.MinTemp))
			}
			if prefs.MaxTemp != nil {
				temps = append(temps, fmt.Sprintf("%g", *prefs.MaxTemp))
			}
			loadSummary += fmt.Sprintf(" Refrigeration: %s°F.", strings.Join(temps, " to "))
		}
	}

	outcomeSummary := "No negotiation outcome yet."
	if len(sum.Rounds) > 0 || sum.Accepted {
		outcomeSummary = fmt.Sprintf("Outcome: accepted=%v. Final rate $%.0f. Rounds: %d.",
			sum.Accepted, sum.FinalRate, len(sum.Rounds))
	}

	sentimentSummary := "No sentiment captured yet."
	if sum.SentimentSource != "" {
		sentimentSummary = fmt.Sprintf("Sentiment: %s.", sum.Sentiment)
		if sum.SentimentReasoning != "" {
			sentimentSummary += fmt.Sprintf(" Reason: %s", sum.SentimentReasoning)
		}
	}

	out := gin.H{
		"ok": true, "call_id": callID,
		"carrier_summary":   carrierSummary,
		"load_summary":      loadSummary,
		"outcome_summary":   outcomeSummary,
		"sentiment_summary": sentimentSummary,
	}
	if t := strings.ToLower(strings.TrimSpace(callID)); t == "" || t == "string" || t == "unknown" {
		out["call_id_hint"] = "Use the real call identifier from your voice session, not a literal like 'string'."
	}
	c.JSON(http.StatusOK, out)
}

// callRecord is a projected call plus its stored search preferences.
type callRecord struct {
	summary.CallSummary
	Prefs *models.CallSearchPrefs `json:"call_search_prefs"`
}

func (s *Server) record(sum summary.CallSummary) callRecord {
	prefs, err := s.prefs.Get(sum.CallID)
	if err != nil {
		log.Printf("server: prefs for %q: %v", sum.CallID, err)
	}
	return callRecord{CallSummary: sum, Prefs: prefs}
}

func (s *Server) handleListCalls(c *gin.Context) {
	q := strings.ToLower(strings.TrimSpace(c.Query("q")))
	outcomeFilter := c.Query("outcome")
	sentimentFilter := c.Query("sentiment")

	records := []callRecord{}
	for _, sum := range s.allSummaries() {
		if outcomeFilter != "" && string(sum.Outcome) != outcomeFilter {
			continue
		}
		if sentimentFilter != "" && sum.Sentiment != sentimentFilter {
			continue
		}
		rec := s.record(sum)
		if q != "" && !strings.Contains(searchHaystack(rec), q) {
			continue
		}
		records = append(records, rec)
	}
	c.JSON(http.StatusOK, records)
}

// searchHaystack is the lowercase text the q filter matches against.
func searchHaystack(rec callRecord) string {
	fields := []string{rec.MCNumber, rec.CarrierName}
	if rec.Load != nil {
		fields = append(fields, rec.Load.LoadID, rec.Load.Origin, rec.Load.Destination)
	}
	if rec.Prefs != nil {
		fields = append(fields, rec.Prefs.OriginCity, rec.Prefs.DestinationCity, rec.Prefs.EquipmentType)
	}
	return strings.ToLower(strings.Join(fields, " "))
}

func (s *Server) handleGetCall(c *gin.Context) {
	callID := c.Param("call_id")
	sum, ok := s.buildSummary(callID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "call not found"})
		return
	}
	c.JSON(http.StatusOK, s.record(sum))
}

func (s *Server) handleMetricsOverview(c *gin.Context) {
	c.JSON(http.StatusOK, metrics.BuildOverview(s.allSummaries(), time.Now().UTC()))
}

func (s *Server) handleMetricsNegotiations(c *gin.Context) {
	c.JSON(http.StatusOK, metrics.BuildNegotiations(s.allSummaries()))
}

func (s *Server) handleMetricsTrends(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"trends": metrics.BuildTrends(s.allSummaries())})
}

func (s *Server) handleCarrierInsights(c *gin.Context) {
	c.JSON(http.StatusOK, metrics.BuildCarrierInsights(s.allSummaries()))
}

func (s *Server) handleDashboard(c *gin.Context) {
	c.HTML(http.StatusOK, "dashboard.html", gin.H{})
}

// sendDigest emails a one-screen daily rollup to the configured recipient.
func (s *Server) sendDigest() {
	if !s.sender.Enabled() {
		return
	}
	calls := s.allSummaries()
	o := metrics.BuildOverview(calls, time.Now().UTC())
	subject, body := mailer.FormatDigest(o, time.Now().UTC())
	if err := s.sender.Send([]string{s.cfg.Digest.To}, subject, body); err != nil {
		log.Printf("server: digest: %v", err)
	}
}

func orUnknown(v string) string {
	if v == "" {
		return "Unknown"
	}
	return v
}

package controllers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeremiapane/restaurant-pos/models"
	"github.com/yeremiapane/restaurant-pos/services"
	"github.com/yeremiapane/restaurant-pos/utils"
)

type SessionController struct {
	Sessions *services.SessionService
}

func NewSessionController(sessions *services.SessionService) *SessionController {
	return &SessionController{Sessions: sessions}
}

func createIfMissing(c *gin.Context) bool {
	return c.Query("create") == "true"
}

// GetActiveForRestaurantTable -> GET /sessions/active/:id/:tableNumber, id is the restaurant
func (sc *SessionController) GetActiveForRestaurantTable(c *gin.Context) {
	number, ok := tableNumberParam(c, "tableNumber")
	if !ok {
		return
	}
	session, err := sc.Sessions.GetActiveSessionForRestaurantTable(c.Request.Context(), c.Param("id"), number, createIfMissing(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Active session", session)
}

// GetActiveForTable -> GET /sessions/active/:id, id is the table
func (sc *SessionController) GetActiveForTable(c *gin.Context) {
	session, err := sc.Sessions.GetActiveSessionForTable(c.Request.Context(), c.Param("id"), createIfMissing(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Active session", session)
}

func (sc *SessionController) ListForTable(c *gin.Context) {
	sessions, err := sc.Sessions.ListSessionsForTable(c.Request.Context(), c.Param("tableId"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of sessions", sessions)
}

func (sc *SessionController) ListActiveForRestaurant(c *gin.Context) {
	sessions, err := sc.Sessions.ListActiveSessionsForRestaurant(c.Request.Context(), c.Param("restaurantId"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of active sessions", sessions)
}

func (sc *SessionController) GetSession(c *gin.Context) {
	session, err := sc.Sessions.GetSession(c.Request.Context(), c.Param("sessionId"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Session details", session)
}

func (sc *SessionController) respondTransition(c *gin.Context, message string, out *services.SessionTransition, err error) {
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.InfoLogger.Printf("Session %s -> %s", out.Session.ID, out.Session.Status)
	utils.RespondJSON(c, http.StatusOK, message, out)
}

func (sc *SessionController) CloseSession(c *gin.Context) {
	out, err := sc.Sessions.CloseTableSession(c.Request.Context(), c.Param("sessionId"), false)
	sc.respondTransition(c, "Session closed", out, err)
}

func (sc *SessionController) CancelSession(c *gin.Context) {
	out, err := sc.Sessions.CloseTableSession(c.Request.Context(), c.Param("sessionId"), true)
	sc.respondTransition(c, "Session cancelled", out, err)
}

func (sc *SessionController) PaySession(c *gin.Context) {
	out, err := sc.Sessions.MarkSessionPaid(c.Request.Context(), c.Param("sessionId"))
	sc.respondTransition(c, "Session paid", out, err)
}

type sessionMutation func(ctx context.Context, id string) (*models.TableSession, error)

func (sc *SessionController) mutation(fn sessionMutation, message string) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, err := fn(c.Request.Context(), c.Param("sessionId"))
		if err != nil {
			respondServiceError(c, err)
			return
		}
		utils.RespondJSON(c, http.StatusOK, message, session)
	}
}

func (sc *SessionController) NeedsBill() gin.HandlerFunc {
	return sc.mutation(sc.Sessions.MarkSessionNeedsBill, "Bill requested")
}

func (sc *SessionController) CancelCheckout() gin.HandlerFunc {
	return sc.mutation(sc.Sessions.CancelSessionCheckout, "Checkout cancelled")
}

func (sc *SessionController) RequestAssistance() gin.HandlerFunc {
	return sc.mutation(sc.Sessions.MarkSessionNeedsAssistance, "Assistance requested")
}

func (sc *SessionController) CancelAssistance() gin.HandlerFunc {
	return sc.mutation(sc.Sessions.CancelSessionAssistance, "Assistance cancelled")
}

func (sc *SessionController) SubmitReview(c *gin.Context) {
	var body struct {
		Stars   int    `json:"stars" binding:"required"`
		Comment string `json:"comment"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	session, err := sc.Sessions.SubmitSessionReview(c.Request.Context(), c.Param("sessionId"), body.Stars, body.Comment)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Review submitted", session)
}

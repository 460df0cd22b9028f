package api

import (
	"errors"
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"

	"github.com/rec-operation/lem-api/core/model"
	"github.com/rec-operation/lem-api/core/orders"
	"github.com/rec-operation/lem-api/core/registry"
)

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// meterInfo describes one registered meter of a community.
type meterInfo struct {
	MeterID        string  `json:"meter_id"`
	TariffCycle    string  `json:"tariff_cycle"`
	InstalledPVKWp float64 `json:"installed_pv_kwp"`
}

func (s *Server) listMeters(c *gin.Context) {
	origin, err := model.ParseDatasetOrigin(c.Param("dataset_origin"))
	if err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Message: err.Error()})
		return
	}

	ids := registry.MeterIDs(origin)
	sort.Strings(ids)
	meters := make([]meterInfo, 0, len(ids))
	for _, id := range ids {
		cycle, _ := registry.TariffCycleOf(origin, id)
		kwp, _ := registry.InstalledPVOf(origin, id)
		meters = append(meters, meterInfo{MeterID: id, TariffCycle: string(cycle), InstalledPVKWp: kwp})
	}
	c.JSON(http.StatusOK, gin.H{"dataset_origin": origin, "meters": meters})
}

func (s *Server) submitVanilla(c *gin.Context) {
	mechanism, err := model.ParsePricingMechanism(c.Param("pricing_mechanism"))
	if err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Message: err.Error()})
		return
	}
	var params model.VanillaParams
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Message: err.Error()})
		return
	}
	if err := params.Normalize(); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Message: err.Error()})
		return
	}

	id, err := s.svc.SubmitVanilla(c.Request.Context(), mechanism, params)
	if err != nil {
		s.internalError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, model.AcceptedResponse{Message: orders.MsgAccepted, OrderID: id})
}

func (s *Server) submitDual(c *gin.Context) {
	var params model.DualParams
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Message: err.Error()})
		return
	}
	if err := params.Normalize(); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Message: err.Error()})
		return
	}

	id, err := s.svc.SubmitDual(c.Request.Context(), params)
	if err != nil {
		s.internalError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, model.AcceptedResponse{Message: orders.MsgAccepted, OrderID: id})
}

func (s *Server) submitLoop(c *gin.Context) {
	organization, err := model.ParseLemOrganization(c.Param("lem_organization"))
	if err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Message: err.Error()})
		return
	}
	mechanism, err := model.ParsePricingMechanism(c.Param("pricing_mechanism"))
	if err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Message: err.Error()})
		return
	}
	var params model.LoopParams
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Message: err.Error()})
		return
	}
	if err := params.Normalize(); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Message: err.Error()})
		return
	}

	id, err := s.svc.SubmitLoop(c.Request.Context(), organization, mechanism, params)
	if err != nil {
		s.internalError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, model.AcceptedResponse{Message: orders.MsgAccepted, OrderID: id})
}

func (s *Server) getVanilla(c *gin.Context) {
	id := c.Param("order_id")
	if !s.orderReady(c, id, model.RequestVanilla, "") {
		return
	}
	out, err := s.svc.VanillaResults(c.Request.Context(), id)
	if err != nil {
		s.internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) getDual(c *gin.Context) {
	s.servePoolResults(c, c.Param("order_id"), model.RequestDual, "")
}

func (s *Server) getLoopPool(c *gin.Context) {
	s.servePoolResults(c, c.Param("order_id"), model.RequestLoop, model.OrganizationPool)
}

func (s *Server) getLoopBilateral(c *gin.Context) {
	id := c.Param("order_id")
	if !s.orderReady(c, id, model.RequestLoop, model.OrganizationBilateral) {
		return
	}
	out, err := s.svc.BilateralMILPResults(c.Request.Context(), id)
	if errors.Is(err, orders.ErrOrderNotFound) {
		c.JSON(http.StatusNotFound, model.ErrorResponse{Message: orders.MsgNotFound, OrderID: id})
		return
	}
	if err != nil {
		s.internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) servePoolResults(c *gin.Context, id string, requestType model.RequestType, organization model.LemOrganization) {
	if !s.orderReady(c, id, requestType, organization) {
		return
	}
	out, err := s.svc.PoolMILPResults(c.Request.Context(), id)
	if errors.Is(err, orders.ErrOrderNotFound) {
		c.JSON(http.StatusNotFound, model.ErrorResponse{Message: orders.MsgNotFound, OrderID: id})
		return
	}
	if err != nil {
		s.internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// orderReady walks the order's status ladder. It writes the response and
// returns false unless the order finished with results to serve. An order
// retrieved through the wrong endpoint is reported as not found, like an
// unknown ID.
func (s *Server) orderReady(c *gin.Context, id string, requestType model.RequestType, organization model.LemOrganization) bool {
	o, err := s.svc.Order(c.Request.Context(), id)
	if errors.Is(err, orders.ErrOrderNotFound) {
		c.JSON(http.StatusNotFound, model.ErrorResponse{Message: orders.MsgNotFound, OrderID: id})
		return false
	}
	if err != nil {
		s.internalError(c, err)
		return false
	}
	if o.RequestType != requestType || (organization != "" && o.LemOrganization != organization) {
		c.JSON(http.StatusNotFound, model.ErrorResponse{Message: orders.MsgNotFound, OrderID: id})
		return false
	}
	if !o.Processed {
		c.JSON(http.StatusAccepted, model.ErrorResponse{Message: orders.MsgPending, OrderID: id})
		return false
	}
	switch o.Error {
	case "":
		return true
	case orders.CodeMissingMeters:
		c.JSON(http.StatusPreconditionFailed, model.MissingIDsResponse{
			Message:    orders.MsgMissingMeters,
			MissingIDs: o.MissingIDs,
			OrderID:    id,
		})
	case orders.CodeMissingData:
		c.JSON(http.StatusUnprocessableEntity, model.MissingDataResponse{
			Message:           orders.MsgMissingData,
			MissingDataPoints: o.MissingDataPoints,
			OrderID:           id,
		})
	default:
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{Message: o.Message, OrderID: id})
	}
	return false
}

func (s *Server) internalError(c *gin.Context, err error) {
	s.log.Errorf("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	c.JSON(http.StatusInternalServerError, model.ErrorResponse{Message: err.Error()})
}

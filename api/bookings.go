/*
Copyright 2025 Heavyrent Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	model2 "github.com/heavyrent/rentahold/api/model"
	"github.com/heavyrent/rentahold/internal/apierror"
)

// CreateBooking handles booking intake. The booking lands in
// pending_verification; the hold lifecycle starts once the customer's card
// is verified.
//
// Responses:
// - 400 Bad Request: If there's an error in binding JSON or validating the booking.
// - 201 Created: If the booking is successfully recorded.
func (a Api) CreateBooking(c *gin.Context) {
	var newBooking model2.CreateBooking
	if err := c.ShouldBindJSON(&newBooking); err != nil {
		logrus.Error(err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	if err := newBooking.ValidateCreateBooking(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	resp, err := a.engine.CreateBooking(c.Request.Context(), newBooking.ToBooking())
	if err != nil {
		c.JSON(apierror.MapErrorToHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// GetBooking retrieves a booking by its ID.
func (a Api) GetBooking(c *gin.Context) {
	id, passed := c.Params.Get("id")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required. pass id in the route /:id"})
		return
	}

	resp, err := a.engine.GetBooking(c.Request.Context(), id)
	if err != nil {
		c.JSON(apierror.MapErrorToHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetBookingPayments returns the hold ledger of a booking.
func (a Api) GetBookingPayments(c *gin.Context) {
	id, passed := c.Params.Get("id")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required. pass id in the route /:id"})
		return
	}

	resp, err := a.engine.GetBookingPayments(c.Request.Context(), id)
	if err != nil {
		c.JSON(apierror.MapErrorToHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// VerifyCard completes card verification for a booking and arranges the
// security hold.
//
// The platform edge authenticates customers and forwards their identity in
// X-Customer-Id; when present, the engine rejects verification of a booking
// the caller does not own.
//
// Responses:
// - 400 Bad Request: If the setup is missing or did not succeed at the gateway.
// - 403 Forbidden: If the booking belongs to another customer.
// - 409 Conflict: If the booking is past verification.
// - 200 OK: If verification is recorded; the body reports whether the hold
//   was scheduled or placed immediately.
func (a Api) VerifyCard(c *gin.Context) {
	id, passed := c.Params.Get("id")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required. pass id in the route /:id"})
		return
	}

	var req model2.VerifyCard
	if err := c.ShouldBindJSON(&req); err != nil {
		logrus.Error(err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}
	if err := req.ValidateVerifyCard(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	resp, err := a.engine.CompleteCardVerification(c.Request.Context(), c.GetHeader("X-Customer-Id"), id, req.SetupID)
	if err != nil {
		c.JSON(apierror.MapErrorToHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// FinalizeReturn settles the security hold when the equipment comes back.
func (a Api) FinalizeReturn(c *gin.Context) {
	id, passed := c.Params.Get("id")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required. pass id in the route /:id"})
		return
	}

	var req model2.FinalizeReturn
	if err := c.ShouldBindJSON(&req); err != nil {
		logrus.Error(err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}
	if err := req.ValidateFinalizeReturn(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	resp, err := a.engine.FinalizeReturn(c.Request.Context(), id, req.Damage())
	if err != nil {
		c.JSON(apierror.MapErrorToHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, resp)
}

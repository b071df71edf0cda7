/*******************************************************************************
* Copyright (C) 2026 the Titan-AAS Authors
*
* Permission is hereby granted, free of charge, to any person obtaining
* a copy of this software and associated documentation files (the
* "Software"), to deal in the Software without restriction, including
* without limitation the rights to use, copy, modify, merge, publish,
* distribute, sublicense, and/or sell copies of the Software, and to
* permit persons to whom the Software is furnished to do so, subject to
* the following conditions:
*
* The above copyright notice and this permission notice shall be
* included in all copies or substantial portions of the Software.
*
* THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND,
* EXPRESS OR IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF
* MERCHANTABILITY, FITNESS FOR A PARTICULAR PURPOSE AND
* NONINFRINGEMENT. IN NO EVENT SHALL THE AUTHORS OR COPYRIGHT HOLDERS BE
* LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER IN AN ACTION
* OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN CONNECTION
* WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.
*
* SPDX-License-Identifier: MIT
******************************************************************************/

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/titan-aas/titan-go-components/internal/common"
)

const healthCheckTimeout = 5 * time.Second

// serviceDescription is the self-description document of the running
// instance (IDTA-01002 /description).
type serviceDescription struct {
	Profiles             []string              `json:"profiles"`
	Modifiers            descriptionModifiers  `json:"modifiers"`
	Pagination           descriptionPagination `json:"pagination"`
	SerializationFormats []string              `json:"serializationFormats"`
	EventTransports      []string              `json:"eventTransports"`
	BlobPolicy           descriptionBlobPolicy `json:"blobPolicy"`
}

type descriptionModifiers struct {
	Content []string `json:"content"`
	Level   []string `json:"level"`
	Extent  []string `json:"extent"`
}

type descriptionPagination struct {
	Style        string `json:"style"`
	DefaultLimit int    `json:"defaultLimit"`
	MaxLimit     int    `json:"maxLimit"`
}

type descriptionBlobPolicy struct {
	StorageType       string `json:"storageType"`
	InlineThreshold   int    `json:"inlineThresholdBytes"`
	CopyOnInstantiate bool   `json:"copyOnInstantiate"`
}

func (h *Handler) getDescription(w http.ResponseWriter, r *http.Request) {
	profiles := []string{
		"https://admin-shell.io/aas/API/3/0/AssetAdministrationShellRepositoryServiceSpecification/SSP-001",
		"https://admin-shell.io/aas/API/3/0/SubmodelRepositoryServiceSpecification/SSP-001",
		"https://admin-shell.io/aas/API/3/0/ConceptDescriptionRepositoryServiceSpecification/SSP-001",
		"https://admin-shell.io/aas/API/3/0/DiscoveryServiceSpecification/SSP-001",
	}
	if h.registry != nil {
		profiles = append(profiles,
			"https://admin-shell.io/aas/API/3/0/AssetAdministrationShellRegistryServiceSpecification/SSP-001",
			"https://admin-shell.io/aas/API/3/0/SubmodelRegistryServiceSpecification/SSP-001",
		)
	}
	transports := []string{}
	if h.hub != nil {
		transports = append(transports, "websocket")
	}
	if h.cfg.MQTT.BrokerURL != "" {
		transports = append(transports, "mqtt")
	}
	storageType := h.cfg.Blob.StorageType
	if storageType == "" {
		storageType = "local"
	}
	common.WriteJSONResponse(w, http.StatusOK, serviceDescription{
		Profiles: profiles,
		Modifiers: descriptionModifiers{
			Content: []string{"normal", "metadata", "value", "reference", "path"},
			Level:   []string{"deep", "core"},
			Extent:  []string{"withBlobValue", "withoutBlobValue"},
		},
		Pagination: descriptionPagination{
			Style:        "cursor",
			DefaultLimit: common.DefaultPageLimit,
			MaxLimit:     common.MaxPageLimit,
		},
		SerializationFormats: []string{"application/json"},
		EventTransports:      transports,
		BlobPolicy: descriptionBlobPolicy{
			StorageType:       storageType,
			InlineThreshold:   h.cfg.Blob.InlineThreshold,
			CopyOnInstantiate: true,
		},
	})
}

type healthReport struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func (h *Handler) getHealth(w http.ResponseWriter, r *http.Request) {
	h.getHealthReady(w, r)
}

// getHealthLive answers as long as the process serves requests; no
// dependency is consulted.
func (h *Handler) getHealthLive(w http.ResponseWriter, r *http.Request) {
	common.WriteJSONResponse(w, http.StatusOK, healthReport{Status: "UP"})
}

// getHealthReady verifies every configured dependency inside a bounded
// deadline and reports 503 when any is down.
func (h *Handler) getHealthReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	checks := map[string]string{}
	healthy := true

	if h.store != nil {
		if err := h.store.DB().PingContext(ctx); err != nil {
			checks["database"] = "DOWN"
			healthy = false
		} else {
			checks["database"] = "UP"
		}
	}
	if h.rdb != nil {
		if err := h.rdb.Ping(ctx).Err(); err != nil {
			checks["redis"] = "DOWN"
			healthy = false
		} else {
			checks["redis"] = "UP"
		}
	}
	if h.registry != nil {
		if err := h.registry.Ping(ctx); err != nil {
			checks["registry"] = "DOWN"
			healthy = false
		} else {
			checks["registry"] = "UP"
		}
	}

	report := healthReport{Status: "UP", Checks: checks}
	status := http.StatusOK
	if !healthy {
		report.Status = "DOWN"
		status = http.StatusServiceUnavailable
	}
	common.WriteJSONResponse(w, status, report)
}

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

// titanaas is the Titan-AAS runtime: repository, registry, discovery and
// event pipeline in one process. Optional facets (Mongo registry, Redis
// cache/queue, MQTT) activate through configuration.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/titan-aas/titan-go-components/internal/api"
	"github.com/titan-aas/titan-go-components/internal/blob"
	"github.com/titan-aas/titan-go-components/internal/cache"
	"github.com/titan-aas/titan-go-components/internal/common"
	"github.com/titan-aas/titan-go-components/internal/common/model"
	"github.com/titan-aas/titan-go-components/internal/events"
	"github.com/titan-aas/titan-go-components/internal/jobs"
	"github.com/titan-aas/titan-go-components/internal/persistence"
	"github.com/titan-aas/titan-go-components/internal/registry"
	"github.com/titan-aas/titan-go-components/internal/writer"
)

func runServer(ctx context.Context, configPath string) error {
	log.Default().Println("Loading Titan-AAS runtime...")
	log.Default().Println("Config Path:", configPath)
	config, err := common.LoadConfig(configPath)
	if err != nil {
		return err
	}
	common.PrintConfiguration(config)

	// ==== Storage ====
	store, err := persistence.NewStore(config.Database)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer store.Close()

	backend, err := blob.NewBackend(ctx, config.Blob)
	if err != nil {
		return fmt.Errorf("blob backend: %w", err)
	}

	registryStore, err := registry.New(ctx, config.Mongo)
	if err != nil {
		return fmt.Errorf("registry: %w", err)
	}
	if registryStore != nil {
		defer registryStore.Close(context.Background())
	}

	// ==== Redis-backed facets ====
	var rdb *redis.Client
	if config.Redis.URL != "" {
		opts, err := redis.ParseURL(config.Redis.URL)
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		rdb = redis.NewClient(opts)
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		defer rdb.Close()
	}

	cacheTier, err := cache.New(ctx, config.Redis, config.Cache)
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}

	// ==== Event pipeline ====
	bus, err := events.NewBus(ctx, config.Events, config.Redis)
	if err != nil {
		return fmt.Errorf("event bus: %w", err)
	}
	defer bus.Close()

	hub := writer.NewHub()
	defer hub.Close()

	var broadcasters []writer.Broadcaster
	broadcasters = append(broadcasters, hub)
	mqttBroadcaster, err := writer.NewMQTTBroadcaster(config.MQTT)
	if err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}
	if mqttBroadcaster != nil {
		defer mqttBroadcaster.Close()
		broadcasters = append(broadcasters, mqttBroadcaster)
	}

	singleWriter := writer.New(bus, cacheTier, broadcasters...)
	go singleWriter.Run(ctx)

	// ==== Repositories ====
	shells := persistence.NewAASRepository(store, bus)
	submodels := persistence.NewSubmodelRepository(store, bus, backend)
	cds := persistence.NewConceptDescriptionRepository(store, bus)
	invocations := persistence.NewInvocationRepository(store, bus)

	// ==== Job queue ====
	if rdb != nil {
		queue := jobs.NewQueue(rdb)
		worker := jobs.NewWorker(queue, 4)
		worker.Register("invocations.purge", func(ctx context.Context, job *model.Job) (json.RawMessage, error) {
			purged, err := invocations.PurgeTerminal(ctx, 7*24*time.Hour)
			if err != nil {
				return nil, err
			}
			return json.RawMessage(fmt.Sprintf(`{"purged":%d}`, purged)), nil
		})
		go worker.Run(ctx)

		scheduler := jobs.NewScheduler(queue, jobs.NewLease(rdb, "scheduler", jobs.DefaultLeaseTTL))
		if err := scheduler.Add(jobs.ScheduleEntry{
			Name: "invocations-purge",
			Task: "invocations.purge",
			Spec: "daily_midnight",
		}); err != nil {
			return fmt.Errorf("scheduler: %w", err)
		}
		go scheduler.Run(ctx)
	}

	// ==== HTTP surface ====
	r := chi.NewRouter()
	common.AddCors(r, config)

	limiter := api.NewRateLimiter(rdb, config.RateLimit)
	r.Use(limiter.Middleware)

	authenticator, err := api.NewAuthenticator(ctx, config.OIDC)
	if err != nil {
		return fmt.Errorf("oidc: %w", err)
	}
	r.Use(authenticator.Middleware)

	handler := api.NewHandler(api.Deps{
		Config:      *config,
		Shells:      shells,
		Submodels:   submodels,
		CDs:         cds,
		Invocations: invocations,
		Store:       store,
		Registry:    registryStore,
		Cache:       cacheTier,
		Hub:         hub,
		Redis:       rdb,
	})
	if config.Server.ContextPath != "" {
		r.Route(config.Server.ContextPath, handler.Routes)
	} else {
		handler.Routes(r)
	}

	addr := fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)
	server := &http.Server{Addr: addr, Handler: r}
	log.Printf("Titan-AAS listening on %s\n", addr)
	go func() {
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("Server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	configPath := ""
	flag.StringVar(&configPath, "config", "", "Path to config file")
	flag.Parse()

	if err := runServer(ctx, configPath); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

// Route pattern constants for chi router registration.
const (
	// RouteRoot is the gallery home page.
	RouteRoot = "/"
	// RouteTheme is the page of one theme.
	RouteTheme = "/theme/{name}"
	// RouteAdmin is the admin panel page.
	RouteAdmin = "/admin"
	// RouteLogin is the login page.
	RouteLogin = "/login"

	// RouteAPI is the prefix of the REST API.
	RouteAPI = "/api"

	// RouteImages serves stored images.
	RouteImages = "/images/{theme}/{image}"
	// RouteThumbs serves rendered thumbnails.
	RouteThumbs = "/thumbs/{theme}/{image}"
	// RouteBackgrounds serves custom backgrounds.
	RouteBackgrounds = "/backgrounds/{name}"

	// RouteHealth is the health check route.
	RouteHealth = "/health"
	// RouteHealthLive is the liveness check.
	RouteHealthLive = "/health/live"
	// RouteHealthReady is the readiness check.
	RouteHealthReady = "/health/ready"
	// RouteMetrics serves Prometheus metrics.
	RouteMetrics = "/metrics"

	// RouteRobots serves robots.txt.
	RouteRobots = "/robots.txt"
	// RouteSitemap serves the sitemap of theme pages.
	RouteSitemap = "/sitemap.xml"
)

// Page files served from the public directory.
const (
	PageIndex = "index.html"
	PageTheme = "theme.html"
	PageAdmin = "admin.html"
	PageLogin = "login.html"
)

// Log messages shared between the server entry point and handlers.
const (
	LogCacheInit = "cache initialized"
)

// Package anvil is a web framework built around declarative route trees,
// reference-identity middleware, and scoped dependency injection.
//
// Routes are declared as values, composed into groups, and compiled once
// at startup into an immutable matcher and URL generator:
//
//	app := anvil.New(
//	    anvil.WithLogger(logger.New()),
//	    anvil.WithMiddleware(middlewares.RequestID(), middlewares.Logging(), middlewares.Recover()),
//	    anvil.WithRoutes(
//	        anvil.Get("/", HandlerFunc(home)),
//	        anvil.NewGroup(anvil.GroupOptions{Prefix: "/users", NamePrefix: "users."},
//	            anvil.Get("/{id}", show, anvil.RouteName("show"), anvil.Where("id", `^\d+$`)),
//	            anvil.Post("/", create, anvil.Use(requireAuth)),
//	        ),
//	    ),
//	)
//
//	if err := app.Run(anvil.Address(":8080")); err != nil {
//	    log.Fatal(err)
//	}
//
// Path templates use {name} for single-segment parameters and {...name}
// for a trailing wildcard. Domain patterns reuse the same syntax for
// hostname labels ("{tenant}.example.com"). Matching precedence is
// deterministic: literal segments beat mixed segments, which beat
// parameters, which beat wildcards, independent of registration order.
//
// Middleware are identified by reference: a *MiddlewareRef attached to a
// group applies to all descendants, can be excluded per route with
// Without, and is deduplicated by identity when layers overlap. Each
// reference carries a container lifecycle, so a Scoped middleware resolves
// to a per-request instance.
//
// Every request runs inside a container scope. Handlers resolve services
// seeded or bound with the matching lifecycle through r.Scope().
package anvil

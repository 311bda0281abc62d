// Package slotwatch checks web pages for signs that appointment slots have
// opened up and announces the ones that look promising.
//
// Each page is described by an [Expectation]: a URL, one or more literal
// markers, and a polarity. Most booking pages show a banner such as
// "All appointments currently are full" while nothing is available, so the
// default polarity treats a page as available once none of its markers
// appear. Pages that instead advertise openings ("Book now") use
// [WithShouldExist].
//
// # Quick Start
//
//	exp, _ := slotwatch.NewExpectation("https://clinic.example.com/covid",
//	    []string{"All appointments currently are full."},
//	)
//	c, _ := slotwatch.New(slotwatch.WithExpectations(exp))
//	defer c.Close()
//
//	summary, err := c.Run(ctx)
//	fmt.Println(summary) // Finished checking 1 sites. 0 of them look promising.
//
// # Evaluation
//
// [Evaluate] is a pure, case-sensitive substring test. The text it searches
// depends on the expectation's [Format]:
//
//   - [FormatRaw]: the response body as received
//   - [FormatHTML]: the visible text of the document, optionally narrowed by a CSS selector
//   - [FormatRSS]: the titles, descriptions and contents of a feed
//
// # Notifications
//
// Matches are announced through a [Notifier]; by default the message is only
// logged. A [Cooldown] can suppress repeat announcements for the same URL
// across runs.
//
// # Architecture
//
// slotwatch consists of several internal packages (under internal/):
//
//   - fetch: retrying HTTP page fetcher with browser-like headers
//   - notify: notification modes, SMS delivery and recipient normalisation
//   - cooldown: Redis-backed notification cooldown
//
// The config package loads a YAML registry and converts it into the values
// accepted by [New].
package slotwatch

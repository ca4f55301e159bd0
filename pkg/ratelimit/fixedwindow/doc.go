// Package fixedwindow provides a fixed window counter limiter.
//
// Time is cut into discrete blocks of WindowSize aligned to the Unix epoch;
// each block admits at most Limit requests and the count resets when the next
// block begins. Window IDs come from wall-clock time so that independent
// processes agree on block boundaries.
//
// Up to 2×Limit requests can be admitted across a boundary (Limit at the tail
// of one block plus Limit at the head of the next). Callers needing a tighter
// bound should use slidinglog or slidingcounter.
package fixedwindow

// Package sim generates synthetic broker traffic for demos and soak runs:
// rate-limited random direct messages between configured participants, and
// cron-scheduled topic announcements with a TTL.
package sim

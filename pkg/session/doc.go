/*
Package session keeps the live wizard sessions of a shell process.

Sessions are held in memory only. The Manager serialises shell operations per
session with reference-counted locks, forgets sessions once they close, and
closes sessions that stay idle longer than the configured TTL.
*/
package session

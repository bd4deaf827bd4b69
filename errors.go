/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

package main

import (
	"fmt"
	"log"
	"strings"
	"time"
)

func logf(cfg *Config, format string, args ...any) {
	if !cfg.verbose {
		return
	}

	log.Printf("%s | "+format, append([]any{time.Now().Format(logDate)}, args...)...)
}

func newPage(title, body string) string {
	var htmlBody strings.Builder

	htmlBody.WriteString(`<!DOCTYPE html><html lang="en"><head>`)
	htmlBody.WriteString(`<style>`)
	htmlBody.WriteString(`html,body,a{display:block;height:100%;width:100%;text-decoration:none;color:inherit;cursor:auto;}</style>`)
	htmlBody.WriteString(fmt.Sprintf("<title>%s</title></head>", title))
	htmlBody.WriteString(fmt.Sprintf("<body><a href=\"/\">%s</a></body></html>", body))

	return htmlBody.String()
}

// errKind is a stable identifier for a rejected client request. The kind is
// what tests and clients branch on; the message is what players see.
type errKind string

const (
	errRoomNotFound      errKind = "room_not_found"
	errRoomFull          errKind = "room_full"
	errInvalidSettings   errKind = "invalid_settings"
	errNotInMatch        errKind = "not_in_match"
	errMatchInProgress   errKind = "match_in_progress"
	errMatchEnded        errKind = "match_ended"
	errMatchNotFinished  errKind = "match_not_finished"
	errNotHost           errKind = "not_host"
	errNotEnoughPlayers  errKind = "not_enough_players"
	errAlreadyFinished   errKind = "already_finished"
	errAttemptsExhausted errKind = "attempts_exhausted"
	errSessionExpired    errKind = "session_expired"
	errAlreadyRequested  errKind = "already_requested"
	errNoRematch         errKind = "no_rematch_requested"
)

var errMessages = map[errKind]string{
	errRoomNotFound:      "That room does not exist - it may have been deleted.",
	errRoomFull:          "That room is full.",
	errInvalidSettings:   "Those settings are not valid.",
	errNotInMatch:        "You are not part of the current match.",
	errMatchInProgress:   "A match is already in progress.",
	errMatchEnded:        "The match has ended - please create a new room.",
	errMatchNotFinished:  "The match is not finished yet.",
	errNotHost:           "Only the host can do that.",
	errNotEnoughPlayers:  "At least two players are needed to start.",
	errAlreadyFinished:   "You have already finished this match.",
	errAttemptsExhausted: "You have used all of your attempts.",
	errSessionExpired:    "Your session was not found or has expired.",
	errAlreadyRequested:  "A rematch has already been requested.",
	errNoRematch:         "No rematch has been requested.",
}

func errorFrame(kind errKind) ErrorMessage {
	return ErrorMessage{
		Type:    "error",
		Kind:    string(kind),
		Message: errMessages[kind],
	}
}

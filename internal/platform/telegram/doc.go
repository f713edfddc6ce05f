// Package telegram delivers review reminders through the Telegram Bot API.
// Learner ids are Telegram chat ids.
package telegram

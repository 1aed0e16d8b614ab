package telegram

import (
	"strconv"
	"strings"
)

// Callback action constants.
const (
	actionInterval = "interval"
	actionAmount   = "amount"
	actionSchedule = "schedule"
)

// callbackData represents structured callback data.
type callbackData struct {
	Action string
	Params []string
	Raw    string
}

// encode creates callback string.
func (cd callbackData) encode() string {
	if len(cd.Params) == 0 {
		return cd.Action
	}
	return cd.Action + ":" + strings.Join(cd.Params, ":")
}

// decodeCallback parses callback data string.
func decodeCallback(data string) callbackData {
	parts := strings.Split(data, ":")

	return callbackData{
		Action: parts[0],
		Params: parts[1:],
		Raw:    data,
	}
}

func buildIntervalCallback(hours int) string {
	return callbackData{
		Action: actionInterval,
		Params: []string{strconv.Itoa(hours)},
	}.encode()
}

// Amount labels contain spaces but never colons.
func buildAmountCallback(label string) string {
	return callbackData{
		Action: actionAmount,
		Params: []string{label},
	}.encode()
}

func buildScheduleCallback() string {
	return actionSchedule
}

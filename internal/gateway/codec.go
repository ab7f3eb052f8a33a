package gateway

import (
	"fmt"

	"github.com/prestond28/road-trip-game-box/internal/ipc"
	"google.golang.org/protobuf/types/known/structpb"
)

// encodeResponse mirrors the unix-socket JSON shape as a Struct.
func encodeResponse(resp ipc.Response) (*structpb.Struct, error) {
	fields := map[string]any{"ok": resp.OK}
	if resp.State != "" {
		fields["state"] = resp.State
	}
	if resp.Message != "" {
		fields["message"] = resp.Message
	}
	if resp.Error != "" {
		fields["error"] = resp.Error
	}
	if len(resp.Details) > 0 {
		details := make(map[string]any, len(resp.Details))
		for k, v := range resp.Details {
			details[k] = v
		}
		fields["details"] = details
	}
	msg, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("encode response: %w", err)
	}
	return msg, nil
}

func decodeResponse(msg *structpb.Struct) ipc.Response {
	fields := msg.GetFields()
	resp := ipc.Response{
		OK:      fields["ok"].GetBoolValue(),
		State:   fields["state"].GetStringValue(),
		Message: fields["message"].GetStringValue(),
		Error:   fields["error"].GetStringValue(),
	}
	if details := fields["details"].GetStructValue(); details != nil {
		resp.Details = make(map[string]string, len(details.GetFields()))
		for k, v := range details.GetFields() {
			resp.Details[k] = v.GetStringValue()
		}
	}
	return resp
}

package http

import (
	"encoding/json"

	"github.com/nkoval/dmrelay-server/internal/core"
	"github.com/nkoval/dmrelay-server/internal/proto"
)

func inboundToCommand(inbound proto.Inbound) (*core.Command, *proto.Error, error) {
	switch inbound.Type {
	case proto.InboundTypeSend:
		var send proto.SendData
		if err := json.Unmarshal(inbound.Data, &send); err != nil {
			return nil, nil, err
		}
		if send.To == "" || send.Content == "" {
			return nil, &proto.Error{Code: core.ErrCodeValidation, Msg: "to and content are required"}, nil
		}
		return &core.Command{
			Kind:    core.CommandSendDirect,
			To:      send.To,
			Content: send.Content,
		}, nil, nil
	default:
		return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "unknown message type"}, nil
	}
}

func outboundFromEvent(event *core.Event) proto.Outbound {
	switch event.Kind {
	case core.EventDelivered:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventDelivered,
			Data: proto.EventDeliveredData{
				From:     event.Message.From,
				To:       event.Message.To,
				Content:  event.Message.Content,
				Sequence: event.Message.Seq,
				TS:       event.Message.CreatedAt.Unix(),
			},
		}
	case core.EventError:
		if event.Error == nil {
			return proto.Outbound{Type: proto.OutboundTypeError, Error: &proto.Error{Code: "unknown", Msg: "unknown error"}}
		}
		return proto.Outbound{
			Type:  proto.OutboundTypeError,
			Error: &proto.Error{Code: event.Error.Code, Msg: event.Error.Message},
		}
	default:
		return proto.Outbound{Type: proto.OutboundTypeEvent}
	}
}

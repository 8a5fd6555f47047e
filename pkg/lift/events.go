package lift

// EventType represents the category of a lift event.
// EventType는 엘리베이터 이벤트의 카테고리를 나타냅니다.
type EventType string

const (
	EventTick            EventType = "Tick"
	EventFloorChange     EventType = "FloorChange"
	EventDoorChange      EventType = "DoorChange"
	EventStatusChange    EventType = "StatusChange"
	EventDirectionChange EventType = "DirectionChange"
	EventRequestChange   EventType = "RequestChange"
	EventError           EventType = "Error"
)

// Event carries the state change information, stamped with the logical tick.
// Event는 시스템 내에서 발생한 상태 변화 정보를 담고 있습니다.
type Event struct {
	Type    EventType   `json:"type"`
	Tick    int         `json:"tick"`
	Payload interface{} `json:"payload,omitempty"`
}

// ErrorPayload carries a fault reported during a tick.
type ErrorPayload struct {
	Message string `json:"message"`
}

// publishEvent sends an event to the channel without blocking the tick.
// 채널이 가득 차면 이벤트를 버리고 메트릭을 증가시킵니다.
func (e *Engine) publishEvent(eventType EventType, payload interface{}) {
	event := Event{
		Type:    eventType,
		Tick:    e.clock,
		Payload: payload,
	}

	select {
	case e.eventCh <- event:
	default:
		e.droppedEventCount++
		// Log rarely to avoid disk I/O flooding
		if e.droppedEventCount%100 == 1 {
			e.logger.Error("Event Channel Saturated", "dropped", e.droppedEventCount, "type", eventType)
		}
	}
}

// publishDiff emits one event per field that changed between two snapshots.
func (e *Engine) publishDiff(prev, next LiftState) {
	if prev.Floor != next.Floor {
		e.publishEvent(EventFloorChange, next.Floor)
	}
	if prev.Door != next.Door {
		e.publishEvent(EventDoorChange, next.Door)
	}
	if prev.Status != next.Status {
		e.publishEvent(EventStatusChange, next.Status)
	}
	if prev.Direction != next.Direction {
		e.publishEvent(EventDirectionChange, next.Direction)
	}
}

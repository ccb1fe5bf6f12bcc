package reservation

// Status 预约状态
// 教学要点:
// 1. 使用int8存储,数值直接落库,不允许重新编号
// 2. 0-4是持久化状态,-1(StatusNone)只出现在Result里,表示什么都没改
// 3. 状态流转统一由transitions表定义,调用方不做零散的if判断
type Status int8

const (
	StatusQueued    Status = 0 // 排队中,不占用副本
	StatusAssigned  Status = 1 // 已分配,占用副本,等待取书
	StatusReturned  Status = 2 // 已归还(终态)
	StatusCancelled Status = 3 // 已取消(终态)
	StatusPickedUp  Status = 4 // 已借出,占用副本

	// StatusNone 操作直接失败时Result携带的状态
	StatusNone Status = -1
)

// String 实现Stringer接口(日志和JSON输出使用)
func (s Status) String() string {
	switch s {
	case StatusQueued:
		return "queued"
	case StatusAssigned:
		return "assigned"
	case StatusReturned:
		return "returned"
	case StatusCancelled:
		return "cancelled"
	case StatusPickedUp:
		return "picked_up"
	case StatusNone:
		return "none"
	default:
		return "unknown"
	}
}

// ParseStatus 把String()的输出解析回Status
func ParseStatus(s string) (Status, bool) {
	for _, st := range []Status{StatusQueued, StatusAssigned, StatusReturned, StatusCancelled, StatusPickedUp} {
		if st.String() == s {
			return st, true
		}
	}
	return StatusNone, false
}

// Valid 是否为五个持久化状态之一
func (s Status) Valid() bool {
	return s >= StatusQueued && s <= StatusPickedUp
}

// HoldsCopy 该状态是否占用一本库存副本(Assigned、PickedUp)
func (s Status) HoldsCopy() bool {
	return s == StatusAssigned || s == StatusPickedUp
}

// IsTerminal 是否为终态(不能再流转)
func (s Status) IsTerminal() bool {
	return s == StatusReturned || s == StatusCancelled
}

// Event 驱动状态流转的事件
type Event string

const (
	EventPromote Event = "promote" // 队首获得副本
	EventApprove Event = "approve" // 管理员确认取书
	EventCancel  Event = "cancel"  // 用户取消
	EventReturn  Event = "return"  // 管理员确认归还
)

// transitions 状态流转表,唯一定义状态变化的地方
// Queued → Assigned 只能通过promote发生;Reserve直接创建Assigned或Queued记录
var transitions = map[Status]map[Event]Status{
	StatusQueued: {
		EventPromote: StatusAssigned,
		EventCancel:  StatusCancelled,
	},
	StatusAssigned: {
		EventApprove: StatusPickedUp,
		EventCancel:  StatusCancelled,
	},
	StatusPickedUp: {
		EventReturn: StatusReturned,
		EventCancel: StatusCancelled,
	},
	StatusReturned:  {},
	StatusCancelled: {},
}

// Next 返回s在ev事件下到达的状态,不允许时返回(s, false)
func (s Status) Next(ev Event) (Status, bool) {
	next, ok := transitions[s][ev]
	if !ok {
		return s, false
	}
	return next, true
}

// CanTransitionTo 是否存在某个事件能把s变为target
func (s Status) CanTransitionTo(target Status) bool {
	for _, next := range transitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

package models

import "fmt"

// UserDataKind tags the variant held by a UserData value.
type UserDataKind int

const (
	UserDataEmpty UserDataKind = iota
	UserDataInt
	UserDataFloat
	UserDataString
	UserDataList
	UserDataMap
)

func (k UserDataKind) String() string {
	switch k {
	case UserDataEmpty:
		return "empty"
	case UserDataInt:
		return "int"
	case UserDataFloat:
		return "float"
	case UserDataString:
		return "string"
	case UserDataList:
		return "list"
	case UserDataMap:
		return "map"
	default:
		return "unknown"
	}
}

// UserData is the open-ended per-frame payload hooks read and write.
// It is a closed sum type rather than a bare `any` so hook executors can
// round-trip it through an embedded language without losing the shape.
type UserData struct {
	Kind UserDataKind
	Int  int64
	Flt  float64
	Str  string
	List []UserData
	Map  map[string]UserData
}

func EmptyUserData() UserData { return UserData{Kind: UserDataEmpty} }

func NewUserDataInt(v int64) UserData    { return UserData{Kind: UserDataInt, Int: v} }
func NewUserDataFloat(v float64) UserData { return UserData{Kind: UserDataFloat, Flt: v} }
func NewUserDataString(v string) UserData { return UserData{Kind: UserDataString, Str: v} }
func NewUserDataList(v []UserData) UserData {
	return UserData{Kind: UserDataList, List: v}
}
func NewUserDataMap(v map[string]UserData) UserData {
	return UserData{Kind: UserDataMap, Map: v}
}

// UserDataFromAny converts a native Go value (typically exported from a
// goja runtime) into a UserData tree. Unrecognized types collapse to a
// string via fmt.Sprint rather than erroring, a permissive boundary for
// script ctx/result conversion.
func UserDataFromAny(v any) UserData {
	switch val := v.(type) {
	case nil:
		return EmptyUserData()
	case UserData:
		return val
	case int:
		return NewUserDataInt(int64(val))
	case int32:
		return NewUserDataInt(int64(val))
	case int64:
		return NewUserDataInt(val)
	case float32:
		return NewUserDataFloat(float64(val))
	case float64:
		return NewUserDataFloat(val)
	case string:
		return NewUserDataString(val)
	case bool:
		if val {
			return NewUserDataInt(1)
		}
		return NewUserDataInt(0)
	case []any:
		list := make([]UserData, len(val))
		for i, item := range val {
			list[i] = UserDataFromAny(item)
		}
		return NewUserDataList(list)
	case map[string]any:
		m := make(map[string]UserData, len(val))
		for k, item := range val {
			m[k] = UserDataFromAny(item)
		}
		return NewUserDataMap(m)
	default:
		return NewUserDataString(fmt.Sprint(val))
	}
}

// ToAny exports the UserData tree to native Go values, the shape a goja
// runtime (or JSON encoder) expects on the other side of the boundary.
func (d UserData) ToAny() any {
	switch d.Kind {
	case UserDataEmpty:
		return nil
	case UserDataInt:
		return d.Int
	case UserDataFloat:
		return d.Flt
	case UserDataString:
		return d.Str
	case UserDataList:
		out := make([]any, len(d.List))
		for i, item := range d.List {
			out[i] = item.ToAny()
		}
		return out
	case UserDataMap:
		out := make(map[string]any, len(d.Map))
		for k, item := range d.Map {
			out[k] = item.ToAny()
		}
		return out
	default:
		return nil
	}
}

// Code generated by protoc-gen-go. DO NOT EDIT.
// versions:
// 	protoc-gen-go v1.36.10
// 	protoc        (unknown)
// source: schedule/v1/schedule.proto

package schedulev1

import (
	protoreflect "google.golang.org/protobuf/reflect/protoreflect"
	protoimpl "google.golang.org/protobuf/runtime/protoimpl"
	reflect "reflect"
	sync "sync"
	unsafe "unsafe"
)

const (
	// Verify that this generated code is sufficiently up-to-date.
	_ = protoimpl.EnforceVersion(20 - protoimpl.MinVersion)
	// Verify that runtime/protoimpl is sufficiently up-to-date.
	_ = protoimpl.EnforceVersion(protoimpl.MaxVersion - 20)
)

type DayScheduleRequest struct {
	state    protoimpl.MessageState `protogen:"open.v1"`
	DoctorId string                 `protobuf:"bytes,1,opt,name=doctor_id,json=doctorId,proto3" json:"doctor_id,omitempty"`
	// Calendar date in YYYY-MM-DD.
	Date          string `protobuf:"bytes,2,opt,name=date,proto3" json:"date,omitempty"`
	unknownFields protoimpl.UnknownFields
	sizeCache     protoimpl.SizeCache
}

func (x *DayScheduleRequest) Reset() {
	*x = DayScheduleRequest{}
	mi := &file_schedule_v1_schedule_proto_msgTypes[0]
	ms := protoimpl.X.MessageStateOf(protoimpl.Pointer(x))
	ms.StoreMessageInfo(mi)
}

func (x *DayScheduleRequest) String() string {
	return protoimpl.X.MessageStringOf(x)
}

func (*DayScheduleRequest) ProtoMessage() {}

func (x *DayScheduleRequest) ProtoReflect() protoreflect.Message {
	mi := &file_schedule_v1_schedule_proto_msgTypes[0]
	if x != nil {
		ms := protoimpl.X.MessageStateOf(protoimpl.Pointer(x))
		if ms.LoadMessageInfo() == nil {
			ms.StoreMessageInfo(mi)
		}
		return ms
	}
	return mi.MessageOf(x)
}

// Deprecated: Use DayScheduleRequest.ProtoReflect.Descriptor instead.
func (*DayScheduleRequest) Descriptor() ([]byte, []int) {
	return file_schedule_v1_schedule_proto_rawDescGZIP(), []int{0}
}

func (x *DayScheduleRequest) GetDoctorId() string {
	if x != nil {
		return x.DoctorId
	}
	return ""
}

func (x *DayScheduleRequest) GetDate() string {
	if x != nil {
		return x.Date
	}
	return ""
}

type DayScheduleResponse struct {
	state    protoimpl.MessageState `protogen:"open.v1"`
	DoctorId string                 `protobuf:"bytes,1,opt,name=doctor_id,json=doctorId,proto3" json:"doctor_id,omitempty"`
	// English weekday name resolved from the date.
	Weekday string `protobuf:"bytes,2,opt,name=weekday,proto3" json:"weekday,omitempty"`
	HasRule bool   `protobuf:"varint,3,opt,name=has_rule,json=hasRule,proto3" json:"has_rule,omitempty"`
	// Zero-padded "HH:MM" wall-clock times; empty when has_rule is false.
	StartTime     string `protobuf:"bytes,4,opt,name=start_time,json=startTime,proto3" json:"start_time,omitempty"`
	EndTime       string `protobuf:"bytes,5,opt,name=end_time,json=endTime,proto3" json:"end_time,omitempty"`
	unknownFields protoimpl.UnknownFields
	sizeCache     protoimpl.SizeCache
}

func (x *DayScheduleResponse) Reset() {
	*x = DayScheduleResponse{}
	mi := &file_schedule_v1_schedule_proto_msgTypes[1]
	ms := protoimpl.X.MessageStateOf(protoimpl.Pointer(x))
	ms.StoreMessageInfo(mi)
}

func (x *DayScheduleResponse) String() string {
	return protoimpl.X.MessageStringOf(x)
}

func (*DayScheduleResponse) ProtoMessage() {}

func (x *DayScheduleResponse) ProtoReflect() protoreflect.Message {
	mi := &file_schedule_v1_schedule_proto_msgTypes[1]
	if x != nil {
		ms := protoimpl.X.MessageStateOf(protoimpl.Pointer(x))
		if ms.LoadMessageInfo() == nil {
			ms.StoreMessageInfo(mi)
		}
		return ms
	}
	return mi.MessageOf(x)
}

// Deprecated: Use DayScheduleResponse.ProtoReflect.Descriptor instead.
func (*DayScheduleResponse) Descriptor() ([]byte, []int) {
	return file_schedule_v1_schedule_proto_rawDescGZIP(), []int{1}
}

func (x *DayScheduleResponse) GetDoctorId() string {
	if x != nil {
		return x.DoctorId
	}
	return ""
}

func (x *DayScheduleResponse) GetWeekday() string {
	if x != nil {
		return x.Weekday
	}
	return ""
}

func (x *DayScheduleResponse) GetHasRule() bool {
	if x != nil {
		return x.HasRule
	}
	return false
}

func (x *DayScheduleResponse) GetStartTime() string {
	if x != nil {
		return x.StartTime
	}
	return ""
}

func (x *DayScheduleResponse) GetEndTime() string {
	if x != nil {
		return x.EndTime
	}
	return ""
}

var File_schedule_v1_schedule_proto protoreflect.FileDescriptor

const file_schedule_v1_schedule_proto_rawDesc = "" +
	"\n" +
	"\x1aschedule/v1/schedule.proto\x12\vschedule.v1\"E\n" +
	"\x12DayScheduleRequest\x12\x1b\n" +
	"\tdoctor_id\x18\x01 \x01(\tR\bdoctorId\x12\x12\n" +
	"\x04date\x18\x02 \x01(\tR\x04date\"\xa1\x01\n" +
	"\x13DayScheduleResponse\x12\x1b\n" +
	"\tdoctor_id\x18\x01 \x01(\tR\bdoctorId\x12\x18\n" +
	"\aweekday\x18\x02 \x01(\tR\aweekday\x12\x19\n" +
	"\bhas_rule\x18\x03 \x01(\bR\ahasRule\x12\x1d\n" +
	"\n" +
	"start_time\x18\x04 \x01(\tR\tstartTime\x12\x19\n" +
	"\bend_time\x18\x05 \x01(\tR\aendTime2f\n" +
	"\x0fScheduleService\x12S\n" +
	"\x0eGetDaySchedule\x12\x1f.schedule.v1.DayScheduleRequest\x1a .schedule.v1.DayScheduleResponseBBZ@github.com/medhelp-app/medhelp/protos/gen/schedule/v1;schedulev1b\x06proto3"

var (
	file_schedule_v1_schedule_proto_rawDescOnce sync.Once
	file_schedule_v1_schedule_proto_rawDescData []byte
)

func file_schedule_v1_schedule_proto_rawDescGZIP() []byte {
	file_schedule_v1_schedule_proto_rawDescOnce.Do(func() {
		file_schedule_v1_schedule_proto_rawDescData = protoimpl.X.CompressGZIP(unsafe.Slice(unsafe.StringData(file_schedule_v1_schedule_proto_rawDesc), len(file_schedule_v1_schedule_proto_rawDesc)))
	})
	return file_schedule_v1_schedule_proto_rawDescData
}

var file_schedule_v1_schedule_proto_msgTypes = make([]protoimpl.MessageInfo, 2)
var file_schedule_v1_schedule_proto_goTypes = []any{
	(*DayScheduleRequest)(nil),  // 0: schedule.v1.DayScheduleRequest
	(*DayScheduleResponse)(nil), // 1: schedule.v1.DayScheduleResponse
}
var file_schedule_v1_schedule_proto_depIdxs = []int32{
	0, // 0: schedule.v1.ScheduleService.GetDaySchedule:input_type -> schedule.v1.DayScheduleRequest
	1, // 1: schedule.v1.ScheduleService.GetDaySchedule:output_type -> schedule.v1.DayScheduleResponse
	1, // [1:2] is the sub-list for method output_type
	0, // [0:1] is the sub-list for method input_type
	0, // [0:0] is the sub-list for extension type_name
	0, // [0:0] is the sub-list for extension extendee
	0, // [0:0] is the sub-list for field type_name
}

func init() { file_schedule_v1_schedule_proto_init() }
func file_schedule_v1_schedule_proto_init() {
	if File_schedule_v1_schedule_proto != nil {
		return
	}
	type x struct{}
	out := protoimpl.TypeBuilder{
		File: protoimpl.DescBuilder{
			GoPackagePath: reflect.TypeOf(x{}).PkgPath(),
			RawDescriptor: unsafe.Slice(unsafe.StringData(file_schedule_v1_schedule_proto_rawDesc), len(file_schedule_v1_schedule_proto_rawDesc)),
			NumEnums:      0,
			NumMessages:   2,
			NumExtensions: 0,
			NumServices:   1,
		},
		GoTypes:           file_schedule_v1_schedule_proto_goTypes,
		DependencyIndexes: file_schedule_v1_schedule_proto_depIdxs,
		MessageInfos:      file_schedule_v1_schedule_proto_msgTypes,
	}.Build()
	File_schedule_v1_schedule_proto = out.File
	file_schedule_v1_schedule_proto_goTypes = nil
	file_schedule_v1_schedule_proto_depIdxs = nil
}

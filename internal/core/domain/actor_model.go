package domain

import (
	"errors"

	"github.com/asynkron/protoactor-go/actor"
)

var ErrUnknownDevice = errors.New("unknown device")

// ActorRef is a reply address carried inside a request.
type ActorRef actor.PID

func RefOf(pid *actor.PID) *ActorRef {
	return (*ActorRef)(pid)
}

type ActorRequest interface {
	ReplyTo() *ActorRef
}

type ActorRequestMixIn struct {
	ReplyToRef *ActorRef
}

func (r ActorRequestMixIn) ReplyTo() *ActorRef {
	return r.ReplyToRef
}

type ActorResponse interface {
	GetResponseError() error
	HasResponseError() bool
}

type ActorResponseMixIn struct {
	ResponseError error
}

func (r ActorResponseMixIn) GetResponseError() error {
	return r.ResponseError
}

func (r ActorResponseMixIn) HasResponseError() bool {
	return r.ResponseError != nil
}

const (
	ACTOR_ID_MASTER       = "master"
	ACTOR_ID_HUB          = "hub"
	ACTOR_ID_MQTT         = "mqtt"
	ACTOR_ID_METRICS      = "metrics"
	ACTOR_ID_HA_DISCOVERY = "hadiscovery"
	ACTOR_ID_DEVICE       = "device"
)

const (
	SNAPSHOT_SOURCE_MQTT = "mqtt"
	SNAPSHOT_SOURCE_HTTP = "http"
)

// IngestSnapshotRequest carries a raw device snapshot. TopicDeviceId is the
// device id taken from the MQTT topic and is empty for other sources.
type IngestSnapshotRequest struct {
	ActorRequestMixIn
	Source        string
	TopicDeviceId string
	Payload       []byte
}

type IngestSnapshotResponse struct {
	ActorResponseMixIn
	UIDBase string
}

type GetDevicesRequest struct {
	ActorRequestMixIn
}

// ResendRegistrationsRequest asks every known device to publish its
// DeviceRegisteredEvent again.
type ResendRegistrationsRequest struct {
}

type GetDevicesResponse struct {
	ActorResponseMixIn
	Devices []DeviceSummary
}

type GetDeviceStatesRequest struct {
	ActorRequestMixIn
	UIDBase string
}

type GetDeviceStatesResponse struct {
	ActorResponseMixIn
	Device DeviceSummary
	States []EntityState
}

type PublishMessageRequest struct {
	ActorRequestMixIn
	Topic   string
	Payload string
	Retain  bool
}

type PublishMessageResponse struct {
	ActorResponseMixIn
}

type PublishSensorUpdateRequest struct {
	ActorRequestMixIn
	Retain bool
	Event  SensorUpdateEvent
}

type PublishSensorUpdateResponse struct {
	ActorResponseMixIn
}

type PublishDiscoveryRequest struct {
	ActorRequestMixIn
	Sensors []GenericSensor
}

type PublishDiscoveryResponse struct {
	ActorResponseMixIn
}

type ActorHealthRequest struct {
	ActorRequestMixIn
}

type ActorHealthResponse struct {
	ActorResponseMixIn
	Id      string
	Healthy bool
	State   string
}

package message

// ProductDescription identifies the local or remote product.
type ProductDescription struct {
	Vendor           string `json:"vendor,omitempty" toml:"vendor" wire:"1"`
	Name             string `json:"name,omitempty" toml:"name" wire:"2"`
	Version          string `json:"version,omitempty" toml:"version" wire:"3"`
	T35CountryCode   uint32 `json:"t35_country_code,omitempty" toml:"t35_country_code" wire:"4"`
	T35Extension     uint32 `json:"t35_extension,omitempty" toml:"t35_extension" wire:"5"`
	ManufacturerCode uint32 `json:"manufacturer_code,omitempty" toml:"manufacturer_code" wire:"6"`
}

// SetGeneralParameters configures the media side of the engine.
// Zero values mean "leave unchanged".
type SetGeneralParameters struct {
	AudioRecordDevice  string `json:"audio_record_device,omitempty" toml:"audio_record_device" wire:"1"`
	AudioPlayerDevice  string `json:"audio_player_device,omitempty" toml:"audio_player_device" wire:"2"`
	VideoInputDevice   string `json:"video_input_device,omitempty" toml:"video_input_device" wire:"3"`
	VideoOutputDevice  string `json:"video_output_device,omitempty" toml:"video_output_device" wire:"4"`
	VideoPreviewDevice string `json:"video_preview_device,omitempty" toml:"video_preview_device" wire:"5"`
	MediaOrder         string `json:"media_order,omitempty" toml:"media_order" wire:"6"`
	MediaMask          string `json:"media_mask,omitempty" toml:"media_mask" wire:"7"`
	AutoRxMedia        string `json:"auto_rx_media,omitempty" toml:"auto_rx_media" wire:"8"`
	AutoTxMedia        string `json:"auto_tx_media,omitempty" toml:"auto_tx_media" wire:"9"`
	NATRouter          string `json:"nat_router,omitempty" toml:"nat_router" wire:"10"`
	STUNServer         string `json:"stun_server,omitempty" toml:"stun_server" wire:"11"`

	TCPPortBase uint32 `json:"tcp_port_base,omitempty" toml:"tcp_port_base" wire:"12"`
	TCPPortMax  uint32 `json:"tcp_port_max,omitempty" toml:"tcp_port_max" wire:"13"`
	UDPPortBase uint32 `json:"udp_port_base,omitempty" toml:"udp_port_base" wire:"14"`
	UDPPortMax  uint32 `json:"udp_port_max,omitempty" toml:"udp_port_max" wire:"15"`
	RTPPortBase uint32 `json:"rtp_port_base,omitempty" toml:"rtp_port_base" wire:"16"`
	RTPPortMax  uint32 `json:"rtp_port_max,omitempty" toml:"rtp_port_max" wire:"17"`

	RTPTypeOfService  uint32 `json:"rtp_type_of_service,omitempty" toml:"rtp_type_of_service" wire:"18"`
	RTPMaxPayloadSize uint32 `json:"rtp_max_payload_size,omitempty" toml:"rtp_max_payload_size" wire:"19"`

	// Jitter bounds in milliseconds.
	MinAudioJitter uint32 `json:"min_audio_jitter,omitempty" toml:"min_audio_jitter" wire:"20"`
	MaxAudioJitter uint32 `json:"max_audio_jitter,omitempty" toml:"max_audio_jitter" wire:"21"`

	SilenceDetectMode  SilenceDetectMode `json:"silence_detect_mode,omitempty" toml:"silence_detect_mode" wire:"22"`
	SilenceThreshold   uint32            `json:"silence_threshold,omitempty" toml:"silence_threshold" wire:"23"`
	SignalDeadband     uint32            `json:"signal_deadband,omitempty" toml:"signal_deadband" wire:"24"`
	SilenceDeadband    uint32            `json:"silence_deadband,omitempty" toml:"silence_deadband" wire:"25"`
	SilenceAdaptPeriod uint32            `json:"silence_adapt_period,omitempty" toml:"silence_adapt_period" wire:"26"`

	EchoCancellation EchoCancelMode `json:"echo_cancellation,omitempty" toml:"echo_cancellation" wire:"27"`
	AudioBuffers     uint32         `json:"audio_buffers,omitempty" toml:"audio_buffers" wire:"28"`
	MediaDataHeader  MediaDataType  `json:"media_data_header,omitempty" toml:"media_data_header" wire:"29"`
	AudioBufferTime  uint32         `json:"audio_buffer_time,omitempty" toml:"audio_buffer_time" wire:"30"`
	ManualAlerting   bool           `json:"manual_alerting,omitempty" toml:"manual_alerting" wire:"31"`
}

func (SetGeneralParameters) Kind() Kind { return KindSetGeneralParameters }

func (p SetGeneralParameters) validate() error {
	if err := portRange("tcp", p.TCPPortBase, p.TCPPortMax); err != nil {
		return err
	}
	if err := portRange("udp", p.UDPPortBase, p.UDPPortMax); err != nil {
		return err
	}
	if err := portRange("rtp", p.RTPPortBase, p.RTPPortMax); err != nil {
		return err
	}
	if p.MaxAudioJitter != 0 && p.MinAudioJitter > p.MaxAudioJitter {
		return invalid("min_audio_jitter exceeds max_audio_jitter")
	}
	if _, ok := silenceDetectNames[p.SilenceDetectMode]; !ok {
		return invalid("silence_detect_mode out of range")
	}
	if _, ok := echoCancelNames[p.EchoCancellation]; !ok {
		return invalid("echo_cancellation out of range")
	}
	if _, ok := mediaDataNames[p.MediaDataHeader]; !ok {
		return invalid("media_data_header out of range")
	}
	return nil
}

func portRange(name string, base, max uint32) error {
	if base > 65535 || max > 65535 {
		return invalid(name + " port out of range")
	}
	if max != 0 && base > max {
		return invalid(name + " port base exceeds max")
	}
	return nil
}

// ProtocolParams is shared by SetProtocolParameters and the per-call overrides.
type ProtocolParams struct {
	Prefix             string             `json:"prefix,omitempty" toml:"prefix" wire:"1"`
	UserName           string             `json:"user_name,omitempty" toml:"user_name" wire:"2"`
	DisplayName        string             `json:"display_name,omitempty" toml:"display_name" wire:"3"`
	Product            ProductDescription `json:"product,omitempty" toml:"product" wire:"4"`
	InterfaceAddresses string             `json:"interface_addresses,omitempty" toml:"interface_addresses" wire:"5"`
	DefaultOptions     string             `json:"default_options,omitempty" toml:"default_options" wire:"6"`
}

// SetProtocolParameters configures one protocol, or all of them with prefix "*".
type SetProtocolParameters ProtocolParams

func (SetProtocolParameters) Kind() Kind { return KindSetProtocolParameters }

func (p SetProtocolParameters) validate() error {
	if p.Prefix == "" {
		return invalid("prefix required")
	}
	if _, err := ParsePrefix(p.Prefix); err != nil {
		return invalid(err.Error())
	}
	return nil
}

// Registration registers (TimeToLive > 0) or unregisters (TimeToLive == 0)
// an identity with a registrar or gatekeeper.
type Registration struct {
	Protocol     string `json:"protocol" toml:"protocol" wire:"1"`
	Identifier   string `json:"identifier" toml:"identifier" wire:"2"`
	HostName     string `json:"host_name,omitempty" toml:"host_name" wire:"3"`
	AuthUserName string `json:"auth_user_name,omitempty" toml:"auth_user_name" wire:"4"`
	Password     string `json:"password,omitempty" toml:"password" wire:"5"`
	AdminEntity  string `json:"admin_entity,omitempty" toml:"admin_entity" wire:"6"`
	TimeToLive   uint32 `json:"time_to_live,omitempty" toml:"time_to_live" wire:"7"`
	RestoreTime  uint32 `json:"restore_time,omitempty" toml:"restore_time" wire:"8"`
	EventPackage string `json:"event_package,omitempty" toml:"event_package" wire:"9"`
	Attributes   string `json:"attributes,omitempty" toml:"attributes" wire:"10"`
}

func (Registration) Kind() Kind { return KindRegistration }

func (p Registration) validate() error {
	if p.Protocol == "" {
		return invalid("protocol required")
	}
	pr, err := ParsePrefix(p.Protocol)
	if err != nil {
		return invalid(err.Error())
	}
	if pr == PrefixAll {
		return invalid("registration needs a single protocol")
	}
	if p.Identifier == "" {
		return invalid("identifier required")
	}
	return nil
}

// Event packages a Registration may subscribe to instead of registering.
const (
	EventPackageMWI            = "message-summary"
	EventPackageLineAppearance = "dialog;sla;ma"
)

// RegistrationStatusReport reports progress of a Registration.
type RegistrationStatusReport struct {
	Protocol   string             `json:"protocol" wire:"1"`
	ServerName string             `json:"server_name,omitempty" wire:"2"`
	Error      string             `json:"error,omitempty" wire:"3"`
	Status     RegistrationStatus `json:"status" wire:"4"`
	Product    ProductDescription `json:"product,omitempty" wire:"5"`
}

func (RegistrationStatusReport) Kind() Kind { return KindRegistrationStatus }

func (p RegistrationStatusReport) validate() error {
	if p.Protocol == "" {
		return invalid("protocol required")
	}
	return nil
}

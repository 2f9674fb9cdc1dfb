package message

func sampleProduct() ProductDescription {
	return ProductDescription{Vendor: "Vox Lucida", Name: "OPAL", Version: "3.18.8", T35CountryCode: 9, ManufacturerCode: 61}
}

// samplePayloads returns one populated payload for every known kind.
func samplePayloads() []Payload {
	overrides := ProtocolParams{Prefix: "sip", UserName: "alice", DisplayName: "Alice", Product: sampleProduct()}
	call := CallInfo{PartyA: "pcss:alice", PartyB: "sip:bob@example.com", CallToken: "tok-1", AlertingType: "urn:alert:tone:normal", ProtocolCallID: "a84b4c76e66710", Overrides: overrides}
	presence := PresenceStatus{Entity: "sip:alice@example.com", Target: "sip:bob@example.com", State: PresenceAvailable, Note: "at desk", Activities: "meeting"}
	im := InstantMessage{From: "sip:alice@example.com", To: "sip:bob@example.com", ConversationID: "conv-1", TextBody: "hello", MessageID: 7}
	stream := MediaStreamInfo{CallToken: "tok-1", Identifier: "1234", Type: "audio out", Format: "G.711-uLaw-64k", State: MediaStateOpen, Volume: 80}

	return []Payload{
		CommandError{Code: CodeRejected, Message: "no route to bob"},
		SetGeneralParameters{
			AudioRecordDevice: "Default", AudioPlayerDevice: "Default", STUNServer: "stun.example.com",
			TCPPortBase: 12000, TCPPortMax: 12999, UDPPortBase: 13000, UDPPortMax: 13999,
			RTPPortBase: 5000, RTPPortMax: 5999, MinAudioJitter: 20, MaxAudioJitter: 200,
			SilenceDetectMode: SilenceDetectAdaptive, EchoCancellation: EchoCancelEnabled,
			MediaDataHeader: MediaDataWithHeader, ManualAlerting: true,
		},
		SetProtocolParameters(overrides),
		Registration{Protocol: "sip", Identifier: "alice@example.com", HostName: "registrar.example.com", Password: "secret", TimeToLive: 300, RestoreTime: 30},
		RegistrationStatusReport{Protocol: "sip", ServerName: "registrar.example.com", Status: RegistrationRetrying, Error: "timeout", Product: sampleProduct()},
		SetUpCall(call),
		IncomingCall{CallToken: "tok-2", RemoteAddress: "sip:carol@example.com", RemoteDisplayName: "Carol", CalledAddress: "pcss:alice", Product: sampleProduct()},
		AnswerCall{CallToken: "tok-2", WithMedia: true, Overrides: overrides},
		ClearCall{CallToken: "tok-1", Reason: EndedByRemoteBusy},
		Alerting(call),
		Established(call),
		UserInput{CallToken: "tok-1", UserInput: "5", Duration: 180},
		CallCleared{CallToken: "tok-1", Reason: "EndedByRemoteUser"},
		HoldCall{CallToken: "tok-1"},
		RetrieveCall{CallToken: "tok-1"},
		TransferCall{CallToken: "tok-1", PartyB: "sip:dave@example.com"},
		SendUserInput{CallToken: "tok-1", UserInput: "1234#"},
		MessageWaiting{Party: "sip:alice@example.com", Type: "Voice", ExtraInfo: "2/8 (0/2)"},
		MediaStream(stream),
		MediaStreamControl(stream),
		SetUserData{CallToken: "tok-1", UserData: "crm:4411"},
		LineAppearance{Line: "sip:line1@example.com", State: LineRinging, Appearance: 2, CallID: "c-1"},
		StartRecording{CallToken: "tok-1", File: "/tmp/call.wav", Channels: 2, VideoMixing: VideoMixStackedScaled},
		StopRecording{CallToken: "tok-1"},
		Proceeding(call),
		AlertingCall{CallToken: "tok-2", WithMedia: true},
		OnHold{CallToken: "tok-1"},
		OffHold{CallToken: "tok-1"},
		TransferStatus{CallToken: "tok-1", Result: "success", Info: "NOTIFY 200"},
		CompletedIVR{CallToken: "tok-1", Variables: "choice=2"},
		AuthorisePresence(presence),
		SubscribePresence(presence),
		SetLocalPresence(presence),
		PresenceChange(presence),
		SendIM(im),
		ReceiveIM(im),
		SentIM{ConversationID: "conv-1", MessageID: 7, Disposition: "delivered"},
		ProtocolMessage{Protocol: "sip", CallToken: "tok-1", Identifier: "INFO", Payload: []byte{0x01, 0x02, 0xff}},
	}
}

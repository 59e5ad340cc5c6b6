package bluesky

// Wire types for the subset of the XRPC API the agent uses.

type createSessionRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

type createSessionResponse struct {
	AccessJWT string `json:"accessJwt"`
	DID       string `json:"did"`
	Handle    string `json:"handle"`
}

type actorRef struct {
	DID         string `json:"did"`
	Handle      string `json:"handle"`
	DisplayName string `json:"displayName"`
}

type replyRef struct {
	URI string `json:"uri"`
	CID string `json:"cid"`
}

type replyRefs struct {
	Root   replyRef `json:"root"`
	Parent replyRef `json:"parent"`
}

type postRecord struct {
	Type      string     `json:"$type"`
	Text      string     `json:"text"`
	Reply     *replyRefs `json:"reply,omitempty"`
	CreatedAt string     `json:"createdAt"`
}

type followRecord struct {
	Type      string `json:"$type"`
	Subject   string `json:"subject"`
	CreatedAt string `json:"createdAt"`
}

type notificationRecord struct {
	Text  string     `json:"text"`
	Reply *replyRefs `json:"reply,omitempty"`
}

type notification struct {
	URI           string             `json:"uri"`
	CID           string             `json:"cid"`
	Author        actorRef           `json:"author"`
	Reason        string             `json:"reason"`
	ReasonSubject string             `json:"reasonSubject"`
	Record        notificationRecord `json:"record"`
	IndexedAt     string             `json:"indexedAt"`
}

type listNotificationsResponse struct {
	Notifications []notification `json:"notifications"`
	Cursor        string         `json:"cursor"`
}

type createRecordRequest struct {
	Repo       string      `json:"repo"`
	Collection string      `json:"collection"`
	Record     interface{} `json:"record"`
}

type createRecordResponse struct {
	URI string `json:"uri"`
	CID string `json:"cid"`
}

type threadViewPost struct {
	Post struct {
		URI    string   `json:"uri"`
		CID    string   `json:"cid"`
		Author actorRef `json:"author"`
	} `json:"post"`
	Replies []threadViewPost `json:"replies"`
}

type getPostThreadResponse struct {
	Thread threadViewPost `json:"thread"`
}

type resolveHandleResponse struct {
	DID string `json:"did"`
}

type getRecordResponse struct {
	URI   string     `json:"uri"`
	CID   string     `json:"cid"`
	Value postRecord `json:"value"`
}

package kube

// Label and annotation keys written by iotops. Changes are visible in clusters.
const (
	Domain = "iotops.yaegashi.dev"

	LabelAppSelector     = "app"
	LabelAppK8sName      = "app.kubernetes.io/name"
	LabelAppK8sInstance  = "app.kubernetes.io/instance"
	LabelAppK8sManagedBy = "app.kubernetes.io/managed-by"
	LabelAppK8sComponent = "app.kubernetes.io/component"

	ManagedBy = "iotops"

	// AnnotationConfigHash carries the content hash of the config a pod template mounts.
	AnnotationConfigHash = Domain + "/config-hash"
)

package exporter

import (
	corev1 "k8s.io/api/core/v1"

	"github.com/yaegashi/iotops/adapters/kube"
	"github.com/yaegashi/iotops/config/iotcfg"
	"github.com/yaegashi/iotops/domain/model"
	"github.com/yaegashi/iotops/internal/naming"
)

// PlanKube declares the exporter namespace, the shared credentials secret and,
// per instance, a data claim, config map, deployment, LoadBalancer service and
// metrics URL output.
func PlanKube(cfg *iotcfg.ComponentConfig, secrets *iotcfg.Secrets) ([]*model.Resource, error) {
	units, err := Units(cfg, cfg.Mosquitto.Hostname)
	if err != nil || len(units) == 0 {
		return nil, err
	}
	ns := naming.ExporterNamespace
	obj := func(id string, spec *kube.ObjectSpec, deps ...string) *model.Resource {
		return &model.Resource{ID: id, Kind: model.KindKubeObject, Spec: spec, DependsOn: deps}
	}

	credentials := map[string]string{
		"username": secrets.ExporterUsername,
		"password": secrets.ExporterPassword,
	}
	rs := []*model.Resource{
		obj(IDNamespace, &kube.ObjectSpec{Object: kube.BuildNamespace(ns)}),
		obj(IDCredentials, &kube.ObjectSpec{Object: kube.BuildSecret(ns, naming.ExporterCredentials, credentials)}, IDNamespace),
	}
	for _, u := range units {
		pvc, err := kube.BuildPVC(ns, u.Name, DataSize)
		if err != nil {
			return nil, err
		}
		configData := map[string]string{ConfigKey: u.Config}
		intent := &model.ServiceIntent{
			Name:   u.Name,
			Image:  Image(cfg.MqttPrometheus.Version),
			Labels: u.Labels,
			Ports:  []model.PortIntent{{Name: "exporter", Container: Port}},
			Env: []model.EnvIntent{
				{Name: EnvUser, SecretRef: naming.ExporterCredentials, SecretKey: "username"},
				{Name: EnvPassword, SecretRef: naming.ExporterCredentials, SecretKey: "password"},
			},
			Mounts: []model.MountIntent{
				{Name: "config", Source: model.MountConfigFile, Ref: u.ConfigMapName, Key: ConfigKey, Path: ConfigPath, ReadOnly: true},
				{Name: "data", Source: model.MountVolume, Ref: u.Name, Path: DataPath},
			},
		}
		// Secret env is only read at container start; credentials are part of the rollout hash.
		hash := kube.ComputeContentHash(map[string]string{
			ConfigKey:  u.Config,
			"username": credentials["username"],
			"password": credentials["password"],
		})
		dep, err := kube.BuildDeployment(ns, intent, kube.DeploymentOptions{
			Replicas:       1,
			PodAnnotations: map[string]string{kube.AnnotationConfigHash: hash},
		})
		if err != nil {
			return nil, err
		}
		svc := kube.BuildService(ns, u.Name, u.Labels, intent.Ports, kube.ExposeOptions{Type: corev1.ServiceTypeLoadBalancer})

		rs = append(rs,
			obj(u.ID("pvc"), &kube.ObjectSpec{Object: pvc}, IDNamespace),
			obj(u.ID("config"), &kube.ObjectSpec{Object: kube.BuildConfigMap(ns, u.ConfigMapName, configData)}, IDNamespace),
			obj(u.ID("deployment"), &kube.ObjectSpec{Object: dep}, IDCredentials, u.ID("pvc"), u.ID("config")),
			obj(u.ID("service"), &kube.ObjectSpec{Object: svc, WaitAddress: true}, u.ID("deployment")),
			&model.Resource{
				ID:   "output/" + u.OutputName(),
				Kind: model.KindOutput,
				Spec: &model.OutputSpec{
					Name:      u.OutputName(),
					From:      u.ID("service"),
					Attribute: "address",
					Format:    metricsURLFormat(),
				},
				DependsOn: []string{u.ID("service")},
			},
		)
	}
	return rs, nil
}
